package object

import (
	"Otf_go/pkg/tools"
	"errors"
	"fmt"
	"io"
)

// Block 待发送的源数据块，按 SymbolSize 等分为 Symbols 个源符号。
// 创建后只读，由发送循环独占。
type Block struct {
	data       []byte
	Symbols    int
	SymbolSize int
	// SourceLength 数据源实际提供的字节数（不含补零）
	SourceLength int
}

// NewBlockFromBuffer 直接引用 buffer；buffer 长度不得小于 symbols*symbolSize
func NewBlockFromBuffer(buffer []byte, symbols, symbolSize int) (*Block, error) {
	if symbols <= 0 || symbolSize <= 0 {
		return nil, fmt.Errorf("invalid block geometry: symbols=%d symbol_size=%d", symbols, symbolSize)
	}
	need := symbols * symbolSize
	if len(buffer) < need {
		return nil, fmt.Errorf("buffer of %d bytes can not hold %d symbols of %d bytes", len(buffer), symbols, symbolSize)
	}
	return &Block{
		data:         buffer[:need:need],
		Symbols:      symbols,
		SymbolSize:   symbolSize,
		SourceLength: need,
	}, nil
}

// NewBlockFromReader 从 r 读取 symbols*symbolSize 字节，不足部分补零
func NewBlockFromReader(r io.Reader, symbols, symbolSize int) (*Block, error) {
	if symbols <= 0 || symbolSize <= 0 {
		return nil, fmt.Errorf("invalid block geometry: symbols=%d symbol_size=%d", symbols, symbolSize)
	}
	buf := make([]byte, symbols*symbolSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read block source: %w", err)
	}
	blk, err := NewBlockFromBuffer(buf, symbols, symbolSize)
	if err != nil {
		return nil, err
	}
	blk.SourceLength = n
	return blk, nil
}

// Len 块长度（字节）
func (b *Block) Len() int {
	return len(b.data)
}

// Symbol 返回第 index 个源符号 [index*size, (index+1)*size)，调用方不得修改
func (b *Block) Symbol(index int) ([]byte, error) {
	if index < 0 || index >= b.Symbols {
		return nil, fmt.Errorf("symbol index %d out of range [0, %d)", index, b.Symbols)
	}
	start := index * b.SymbolSize
	end := start + b.SymbolSize
	return b.data[start:end:end], nil
}

// SourceSymbols 数据源实际覆盖的符号数（最后一个可能只有部分有效）
func (b *Block) SourceSymbols() int {
	return int(tools.DivCeil(uint64(b.SourceLength), uint64(b.SymbolSize)))
}
