package sender

import (
	"Otf_go/pkg/fec"
	"Otf_go/pkg/object"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/logging"
	"golang.org/x/time/rate"
)

// Transport 发送一个不透明的数据报，失败即视为致命
type Transport interface {
	Send(payload []byte) error
}

type Config struct {
	// 总发包数 N，必须 >= 源符号个数
	PacketCount int
	// 每次发送后的固定等待
	InterPacketDelay time.Duration
	// 额外限速，0 = 不限
	MaxRateKbps uint32
	// nil = SleepPacer
	Pacer Pacer
	// nil = pion 默认工厂
	LoggerFactory logging.LoggerFactory
}

// DefaultConfig 每个源符号恰好一个包
func DefaultConfig(symbols int) Config {
	return Config{
		PacketCount:      symbols,
		InterPacketDelay: 0,
		MaxRateKbps:      0,
		Pacer:            SleepPacer{},
	}
}

// Report 一次发送的统计；出错时也会返回已完成部分
type Report struct {
	Packets   int
	Bytes     uint64
	FinalRank int
	Elapsed   time.Duration
}

type Sender struct {
	block     *object.Block
	encoder   fec.Encoder
	transport Transport
	pacer     Pacer
	limiter   *rate.Limiter
	cfg       Config
	observers *ObserverList
	// 每次迭代复用的输出缓冲
	payload []byte
	log     logging.LeveledLogger
}

func NewSender(block *object.Block, encoder fec.Encoder, tr Transport, cfg *Config) *Sender {
	if cfg == nil {
		var symbols int
		if encoder != nil {
			symbols = encoder.Symbols()
		}
		def := DefaultConfig(symbols)
		cfg = &def
	}
	c := *cfg
	if c.Pacer == nil {
		c.Pacer = SleepPacer{}
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	s := &Sender{
		block:     block,
		encoder:   encoder,
		transport: tr,
		pacer:     c.Pacer,
		cfg:       c,
		observers: NewObserverList(),
		log:       c.LoggerFactory.NewLogger("sender"),
	}
	if encoder != nil {
		s.payload = make([]byte, encoder.PayloadSize())
		s.limiter = newByteLimiter(c.MaxRateKbps, encoder.PayloadSize())
	}
	return s
}

// Subscribe / Unsubscribe
func (s *Sender) Subscribe(sub Subscriber) {
	s.observers.Subscribe(sub)
}

func (s *Sender) Unsubscribe(sub Subscriber) {
	s.observers.Unsubscribe(sub)
}

func (s *Sender) PacketCount() int {
	return s.cfg.PacketCount
}

// Run 执行恰好 PacketCount 次迭代：加入符号 → 生成 → 发送 → 等待。
// 任何错误都立即结束，不再进行后续的加入、生成或发送。
func (s *Sender) Run(ctx context.Context) (rep Report, err error) {
	start := time.Now()
	defer func() {
		rep.Elapsed = time.Since(start)
		if s.encoder != nil {
			rep.FinalRank = s.encoder.Rank()
		}
		if err != nil {
			s.log.Errorf("%v", err)
		}
	}()

	if err := s.check(); err != nil {
		return rep, err
	}

	s.observers.Dispatch(Event{Kind: EventStartTransfer, Iteration: -1, Rank: s.encoder.Rank()}, start)
	defer func() {
		s.observers.Dispatch(Event{Kind: EventStopTransfer, Iteration: -1, Rank: s.encoder.Rank(), Err: err}, time.Now())
	}()

	for i := 0; i < s.cfg.PacketCount; i++ {
		// 1) 加入下一个源符号；rank 本身就是游标
		if err := s.admit(i); err != nil {
			return rep, err
		}

		// 2) 生成编码包
		used, err := s.encoder.GeneratePayload(s.payload)
		if err != nil {
			return rep, newError(KindCodingEngine, "generate", i, err)
		}
		if used <= 0 || used > len(s.payload) {
			return rep, newError(KindCodingEngine, "generate", i,
				fmt.Errorf("bytes used %d outside (0, %d]", used, len(s.payload)))
		}
		rank := s.encoder.Rank()
		s.log.Debugf("payload generated by encoder, rank = %d, bytes used = %d", rank, used)
		s.observers.Dispatch(Event{Kind: EventPayloadGenerated, Iteration: i, Rank: rank, BytesUsed: used}, time.Now())

		// 3) 发送（可选 kbps 限速）
		if s.limiter != nil {
			if err := s.limiter.WaitN(ctx, used); err != nil {
				return rep, s.waitError("rate limit", i, err)
			}
		}
		if err := s.transport.Send(s.payload[:used]); err != nil {
			return rep, newError(KindTransmission, "send", i, err)
		}
		rep.Packets++
		rep.Bytes += uint64(used)
		s.observers.Dispatch(Event{Kind: EventPayloadSent, Iteration: i, Rank: rank, BytesUsed: used}, time.Now())

		// 4) 固定间隔，最后一个包之后同样等待
		if err := s.pacer.Wait(ctx, s.cfg.InterPacketDelay); err != nil {
			return rep, s.waitError("pace", i, err)
		}
	}
	return rep, nil
}

func (s *Sender) check() error {
	if s.block == nil || s.encoder == nil || s.transport == nil {
		return newError(KindConfiguration, "setup", -1, errors.New("sender needs a block, an encoder and a transport"))
	}
	symbols := s.encoder.Symbols()
	if s.cfg.PacketCount <= 0 || s.cfg.PacketCount < symbols {
		return newError(KindConfiguration, "setup", -1,
			fmt.Errorf("%w: number of packets should be at least %d, got %d", ErrPacketCountTooLow, symbols, s.cfg.PacketCount))
	}
	if s.block.Symbols != symbols || s.block.SymbolSize != s.encoder.SymbolSize() {
		return newError(KindConfiguration, "setup", -1,
			fmt.Errorf("block of %dx%d bytes does not match encoder %dx%d",
				s.block.Symbols, s.block.SymbolSize, symbols, s.encoder.SymbolSize()))
	}
	if s.cfg.InterPacketDelay < 0 {
		return newError(KindConfiguration, "setup", -1, fmt.Errorf("negative inter-packet delay %v", s.cfg.InterPacketDelay))
	}
	return nil
}

// admit rank < symbols 时加入第 rank 个符号，每次迭代最多一个
func (s *Sender) admit(iteration int) error {
	rank := s.encoder.Rank()
	if rank >= s.encoder.Symbols() {
		return nil
	}
	symbol, err := s.block.Symbol(rank)
	if err != nil {
		return newError(KindCodingEngine, "admit", iteration, err)
	}
	if err := s.encoder.AdmitSymbol(rank, symbol); err != nil {
		return newError(KindCodingEngine, "admit", iteration, err)
	}
	if got := s.encoder.Rank(); got != rank+1 {
		return newError(KindCodingEngine, "admit", iteration,
			fmt.Errorf("rank moved from %d to %d after admitting symbol %d", rank, got, rank))
	}
	return nil
}

func (s *Sender) waitError(stage string, iteration int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindCanceled, stage, iteration, err)
	}
	return newError(KindTransmission, stage, iteration, err)
}
