package sender

import (
	"Otf_go/pkg/transport"
	"context"
	"errors"
	"fmt"
)

// Kind 致命错误分类；任何一种都会终止本次发送
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindResolution
	KindTransportSetup
	KindTransmission
	KindCodingEngine
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindResolution:
		return "ResolutionError"
	case KindTransportSetup:
		return "TransportSetupError"
	case KindTransmission:
		return "TransmissionError"
	case KindCodingEngine:
		return "CodingEngineError"
	case KindCanceled:
		return "Canceled"
	default:
		return "UnknownError"
	}
}

var ErrPacketCountTooLow = errors.New("packet count lower than symbol count")

type Error struct {
	Kind  Kind
	Stage string
	// Iteration 出错的迭代序号，循环开始前为 -1
	Iteration int
	Err       error
}

func newError(kind Kind, stage string, iteration int, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Iteration: iteration, Err: err}
}

func (e *Error) Error() string {
	if e.Iteration < 0 {
		return fmt.Sprintf("%v in %s: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%v in %s (packet %d): %v", e.Kind, e.Stage, e.Iteration, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf 对任意错误分类，也识别 transport 包在建立阶段返回的错误
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, transport.ErrResolve):
		return KindResolution
	case errors.Is(err, transport.ErrSocket):
		return KindTransportSetup
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindUnknown
}
