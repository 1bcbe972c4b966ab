package fec

import (
	"Otf_go/pkg/oti"
	"fmt"
	"math/rand"

	rs "github.com/klauspost/reedsolomon"
	"github.com/pion/logging"
)

// OnTheFlyEncoder GF(2^8) 随机线性网络编码。
// 编码包 = Σ c_i * s_i（i < rank），系数随包携带；乘加由 reedsolomon 以单行自定义矩阵完成。
type OnTheFlyEncoder struct {
	symbolWindow

	systematic bool
	// nextSystematic 下一个尚未以系统形式发出的符号
	nextSystematic int

	rng    *rand.Rand
	shards [][]byte
	// scratch 第二批起的部分和
	scratch []byte
	log     logging.LeveledLogger
}

func newOnTheFlyEncoder(o oti.Oti, systematic bool, rng *rand.Rand, lf logging.LoggerFactory) *OnTheFlyEncoder {
	o.Systematic = systematic
	return &OnTheFlyEncoder{
		symbolWindow: symbolWindow{
			oti:     o,
			symbols: make([][]byte, 0, o.Symbols),
		},
		systematic: systematic,
		rng:        rng,
		shards:     make([][]byte, 0, min(int(o.Symbols), maxBatch)+1),
		log:        lf.NewLogger("fec"),
	}
}

func (e *OnTheFlyEncoder) AdmitSymbol(index int, symbol []byte) error {
	return e.admit(index, symbol)
}

func (e *OnTheFlyEncoder) GeneratePayload(buf []byte) (int, error) {
	if err := e.checkGenerate(buf); err != nil {
		return 0, err
	}
	rank := e.Rank()

	if e.systematic && e.nextSystematic < rank {
		index := e.nextSystematic
		e.nextSystematic++
		e.log.Tracef("systematic symbol %d, rank %d", index, rank)
		return writeSystematic(buf, e.oti.CodecID, e.Symbols(), rank, index, e.symbols[index]), nil
	}

	n := pushHeader(buf, e.oti.CodecID, false, e.Symbols(), rank)
	coeffs := buf[n : n+rank]
	for i := range coeffs {
		// 非零系数 [1, 255]
		coeffs[i] = uint8(e.rng.Intn(255) + 1)
	}
	n += rank
	size := e.SymbolSize()
	out := buf[n : n+size]

	if err := e.combine(coeffs, out); err != nil {
		return 0, err
	}
	e.log.Tracef("coded symbol, rank %d", rank)
	return n + size, nil
}

// maxBatch 单个 reedsolomon 编码器最多 256 个分片，其中 1 个为输出
const maxBatch = 255

// combine out = Σ coeffs[i] * symbols[i]
// rank 超过 maxBatch 时分批计算，GF(2^8) 加法即异或
func (e *OnTheFlyEncoder) combine(coeffs, out []byte) error {
	rank := len(coeffs)
	for start := 0; start < rank; start += maxBatch {
		end := min(start+maxBatch, rank)
		dst := out
		if start > 0 {
			if e.scratch == nil {
				e.scratch = make([]byte, len(out))
			}
			dst = e.scratch
		}
		if err := e.encodeBatch(coeffs[start:end], e.symbols[start:end], dst); err != nil {
			return err
		}
		if start > 0 {
			for i, v := range dst {
				out[i] ^= v
			}
		}
	}
	return nil
}

func (e *OnTheFlyEncoder) encodeBatch(coeffs []byte, symbols [][]byte, dst []byte) error {
	n := len(coeffs)
	enc, err := rs.New(n, 1,
		rs.WithCustomMatrix([][]byte{coeffs}),
		rs.WithInversionCache(false),
	)
	if err != nil {
		return fmt.Errorf("build coding matrix for %d symbols: %w", n, err)
	}

	e.shards = append(e.shards[:0], symbols...)
	e.shards = append(e.shards, dst)
	if err := enc.Encode(e.shards); err != nil {
		return fmt.Errorf("encode %d symbols: %w", n, err)
	}
	return nil
}
