package fec

import (
	"Otf_go/pkg/oti"

	"github.com/pion/logging"
)

// NoCodeEncoder 不做编码：新符号按顺序发出，全部发完后轮询重复（carousel）
type NoCodeEncoder struct {
	symbolWindow

	nextSystematic int
	carousel       int
	log            logging.LeveledLogger
}

func newNoCodeEncoder(o oti.Oti, lf logging.LoggerFactory) *NoCodeEncoder {
	return &NoCodeEncoder{
		symbolWindow: symbolWindow{
			oti:     o,
			symbols: make([][]byte, 0, o.Symbols),
		},
		log: lf.NewLogger("fec"),
	}
}

func (e *NoCodeEncoder) AdmitSymbol(index int, symbol []byte) error {
	return e.admit(index, symbol)
}

func (e *NoCodeEncoder) GeneratePayload(buf []byte) (int, error) {
	if err := e.checkGenerate(buf); err != nil {
		return 0, err
	}
	rank := e.Rank()

	var index int
	if e.nextSystematic < rank {
		index = e.nextSystematic
		e.nextSystematic++
	} else {
		index = e.carousel % rank
		e.carousel++
		e.log.Tracef("repeat symbol %d", index)
	}
	return writeSystematic(buf, e.oti.CodecID, e.Symbols(), rank, index, e.symbols[index]), nil
}
