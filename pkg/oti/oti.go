package oti

import (
	"errors"
	"fmt"
)

type CodecID uint8

const (
	NoCode CodecID = iota
	OnTheFlyBinary8
	FullVectorBinary8
)

func (c CodecID) String() string {
	switch c {
	case NoCode:
		return "NoCode"
	case OnTheFlyBinary8:
		return "OnTheFlyBinary8"
	case FullVectorBinary8:
		return "FullVectorBinary8"
	default:
		return fmt.Sprintf("Unknown CodecID (%d)", c)
	}
}

func CodecIDFromByte(v byte) (CodecID, error) {
	switch v {
	case 0:
		return NoCode, nil
	case 1:
		return OnTheFlyBinary8, nil
	case 2:
		return FullVectorBinary8, nil
	default:
		return 0, errors.New("invalid CodecID")
	}
}

// CodecIDFromName 解析配置文件/命令行中的编码名称
func CodecIDFromName(name string) (CodecID, error) {
	switch name {
	case "no_code":
		return NoCode, nil
	case "", "on_the_fly":
		return OnTheFlyBinary8, nil
	case "full_vector":
		return FullVectorBinary8, nil
	default:
		return 0, fmt.Errorf("unsupported codec: %s", name)
	}
}

const (
	// HeaderSize codec(1) + flags(1) + symbols(2) + rank(2)
	HeaderSize = 6
	// SymbolIndexSize 系统包里的符号索引字段
	SymbolIndexSize = 2

	DefaultSymbolSize = 160
	// MaxSymbols 头部 symbols/rank 字段为 16 位
	MaxSymbols    = 0xFFFF
	MaxSymbolSize = 0xFFFF
)

// Oti 描述一次发送所用的编码参数，构造后不可变
type Oti struct {
	CodecID    CodecID
	Symbols    uint16
	SymbolSize uint16
	// Systematic 新加入的源符号先以未编码形式发送一次
	Systematic bool
}

func NewOti(symbols uint16) *Oti {
	return &Oti{
		CodecID:    OnTheFlyBinary8,
		Symbols:    symbols,
		SymbolSize: DefaultSymbolSize,
		Systematic: true,
	}
}

func NewNoCode(symbols, symbolSize uint16) *Oti {
	return &Oti{
		CodecID:    NoCode,
		Symbols:    symbols,
		SymbolSize: symbolSize,
		Systematic: true,
	}
}

func NewOnTheFly(symbols, symbolSize uint16, systematic bool) (*Oti, error) {
	o := &Oti{
		CodecID:    OnTheFlyBinary8,
		Symbols:    symbols,
		SymbolSize: symbolSize,
		Systematic: systematic,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func NewFullVector(symbols, symbolSize uint16) (*Oti, error) {
	o := &Oti{
		CodecID:    FullVectorBinary8,
		Symbols:    symbols,
		SymbolSize: symbolSize,
		Systematic: false,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Oti) Validate() error {
	if o.Symbols == 0 {
		return errors.New("symbols can not be 0")
	}
	if o.SymbolSize == 0 {
		return errors.New("symbol size can not be 0")
	}
	switch o.CodecID {
	case NoCode, OnTheFlyBinary8, FullVectorBinary8:
	default:
		return fmt.Errorf("unsupported codec: %v", o.CodecID)
	}
	return nil
}

// BlockSize 源数据块总长度（字节）
func (o *Oti) BlockSize() int {
	return int(o.Symbols) * int(o.SymbolSize)
}

// PayloadSize 任意一个编码包的长度上限
func (o *Oti) PayloadSize() int {
	var body int
	switch o.CodecID {
	case NoCode:
		body = SymbolIndexSize
	default:
		// 系统包携带索引，编码包携带 rank 个系数
		body = max(SymbolIndexSize, int(o.Symbols))
	}
	return HeaderSize + body + int(o.SymbolSize)
}
