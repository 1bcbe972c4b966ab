package fec

import (
	"Otf_go/pkg/oti"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/pion/logging"
)

var (
	ErrOutOfOrder     = errors.New("symbol admitted out of order")
	ErrRankFull       = errors.New("all symbols already admitted")
	ErrSymbolSize     = errors.New("symbol has wrong size")
	ErrNoSymbols      = errors.New("no symbol admitted yet")
	ErrBufferTooSmall = errors.New("payload buffer too small")
)

// Encoder 无速率（on-the-fly）编码器。
// Rank 即已加入的源符号个数，只能按 0,1,2... 的顺序加入。
type Encoder interface {
	Rank() int
	Symbols() int
	SymbolSize() int
	// PayloadSize 任意 GeneratePayload 输出长度的上限
	PayloadSize() int
	AdmitSymbol(index int, symbol []byte) error
	// GeneratePayload 将当前编码状态序列化到 buf，返回实际使用的字节数
	GeneratePayload(buf []byte) (int, error)
}

// NewEncoder 按 Oti.CodecID 构建编码器；rng 为 nil 时按当前时间播种
func NewEncoder(o *oti.Oti, rng *rand.Rand, lf logging.LoggerFactory) (Encoder, error) {
	if o == nil {
		return nil, errors.New("nil oti")
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}

	switch o.CodecID {
	case oti.NoCode:
		return newNoCodeEncoder(*o, lf), nil
	case oti.OnTheFlyBinary8:
		return newOnTheFlyEncoder(*o, o.Systematic, rng, lf), nil
	case oti.FullVectorBinary8:
		return newOnTheFlyEncoder(*o, false, rng, lf), nil
	default:
		return nil, fmt.Errorf("unknown codec: %v", o.CodecID)
	}
}

// symbolWindow 两种编码器共用的已加入符号集合
type symbolWindow struct {
	oti     oti.Oti
	symbols [][]byte
}

func (w *symbolWindow) Rank() int        { return len(w.symbols) }
func (w *symbolWindow) Symbols() int     { return int(w.oti.Symbols) }
func (w *symbolWindow) SymbolSize() int  { return int(w.oti.SymbolSize) }
func (w *symbolWindow) PayloadSize() int { return w.oti.PayloadSize() }

func (w *symbolWindow) admit(index int, symbol []byte) error {
	rank := len(w.symbols)
	if rank == int(w.oti.Symbols) {
		return ErrRankFull
	}
	if index != rank {
		return fmt.Errorf("%w: got index %d, rank is %d", ErrOutOfOrder, index, rank)
	}
	if len(symbol) != int(w.oti.SymbolSize) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSymbolSize, len(symbol), w.oti.SymbolSize)
	}
	// 与 set_const_symbol 一致：只保存引用，源块不可变
	w.symbols = append(w.symbols, symbol)
	return nil
}

func (w *symbolWindow) checkGenerate(buf []byte) error {
	if len(w.symbols) == 0 {
		return ErrNoSymbols
	}
	if len(buf) < w.oti.PayloadSize() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferTooSmall, len(buf), w.oti.PayloadSize())
	}
	return nil
}
