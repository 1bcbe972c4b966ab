package fec

import (
	"Otf_go/pkg/oti"
	"encoding/binary"
	"errors"
	"fmt"
)

const flagSystematic uint8 = 0x01

// Payload 解析后的编码包，Coefficients/Symbol 引用原始缓冲区
type Payload struct {
	CodecID    oti.CodecID
	Systematic bool
	Symbols    uint16
	Rank       uint16
	// Index 仅系统包有效
	Index uint16
	// Coefficients 仅编码包有效，长度等于 Rank
	Coefficients []byte
	Symbol       []byte
}

// pushHeader 写入固定 6 字节头部，返回头部长度
func pushHeader(buf []byte, codec oti.CodecID, systematic bool, symbols, rank int) int {
	var flags uint8
	if systematic {
		flags |= flagSystematic
	}
	buf[0] = uint8(codec)
	buf[1] = flags
	binary.BigEndian.PutUint16(buf[2:4], uint16(symbols))
	binary.BigEndian.PutUint16(buf[4:6], uint16(rank))
	return oti.HeaderSize
}

// writeSystematic 写入一个未编码的源符号，返回使用的字节数
func writeSystematic(buf []byte, codec oti.CodecID, symbols, rank, index int, symbol []byte) int {
	n := pushHeader(buf, codec, true, symbols, rank)
	binary.BigEndian.PutUint16(buf[n:n+oti.SymbolIndexSize], uint16(index))
	n += oti.SymbolIndexSize
	n += copy(buf[n:], symbol)
	return n
}

func ParsePayload(data []byte) (*Payload, error) {
	if len(data) < oti.HeaderSize {
		return nil, fmt.Errorf("payload of %d bytes is shorter than header", len(data))
	}
	codec, err := oti.CodecIDFromByte(data[0])
	if err != nil {
		return nil, err
	}
	p := &Payload{
		CodecID:    codec,
		Systematic: data[1]&flagSystematic != 0,
		Symbols:    binary.BigEndian.Uint16(data[2:4]),
		Rank:       binary.BigEndian.Uint16(data[4:6]),
	}
	if p.Rank == 0 || p.Rank > p.Symbols {
		return nil, fmt.Errorf("invalid rank %d for %d symbols", p.Rank, p.Symbols)
	}
	body := data[oti.HeaderSize:]

	if p.Systematic {
		if len(body) <= oti.SymbolIndexSize {
			return nil, errors.New("systematic payload without symbol data")
		}
		p.Index = binary.BigEndian.Uint16(body[:oti.SymbolIndexSize])
		if p.Index >= p.Rank {
			return nil, fmt.Errorf("symbol index %d outside rank %d", p.Index, p.Rank)
		}
		p.Symbol = body[oti.SymbolIndexSize:]
		return p, nil
	}

	if len(body) <= int(p.Rank) {
		return nil, errors.New("coded payload without symbol data")
	}
	p.Coefficients = body[:p.Rank]
	p.Symbol = body[p.Rank:]
	return p, nil
}
