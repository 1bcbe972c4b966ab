package main

import (
	"Otf_go/pkg/fec"
	"Otf_go/pkg/object"
	"Otf_go/pkg/oti"
	"Otf_go/pkg/sender"
	"Otf_go/pkg/tools"
	"Otf_go/pkg/transport"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pion/logging"
	ptransport "github.com/pion/transport/v4"
)

// newNet 测试中替换为 vnet
var newNet = func() (ptransport.Net, error) {
	return transport.NewStdNet()
}

type cliArgs struct {
	host    string
	port    uint16
	symbols int
	packets int
	delayMs uint64
}

// 主程序

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	prog := filepath.Base(os.Args[0])

	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	symbolSize := fs.Uint("symbol-size", 0, "symbol size in bytes (default 160)")
	codec := fs.String("codec", "", "on_the_fly | full_vector | no_code")
	seed := fs.Int64("seed", 0, "seed for block data and coefficients")
	logLevel := fs.String("log-level", "", "disabled|error|warn|info|debug|trace")
	bind := fs.String("bind", "", "local bind address")
	source := fs.String("source", "", "file providing the block data")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] <server> <port> <symbols> <packets> <delay_ms>\n", prog)
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return 1
	}

	if fs.NArg() != 5 {
		fmt.Fprintf(stdout, "usage: %s <server> <port> <symbols> <packets> <delay_ms>\n", prog)
		return 1
	}
	args, err := parseArgs(fs.Args())
	if err != nil {
		fmt.Fprintf(stdout, "%s: %v\n", prog, err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *symbolSize > oti.MaxSymbolSize {
		fmt.Fprintf(stderr, "invalid coding config: symbol size %d exceeds %d\n", *symbolSize, oti.MaxSymbolSize)
		return 1
	}
	// 命令行显式给出的参数优先于配置文件
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "symbol-size":
			cfg.Sender.Coding.SymbolSize = uint16(*symbolSize)
		case "codec":
			cfg.Sender.Coding.Type = *codec
		case "seed":
			cfg.Sender.Coding.Seed = seed
		case "log-level":
			cfg.Sender.Logging.Level = *logLevel
		case "bind":
			cfg.Sender.Network.BindAddress = *bind
		case "source":
			cfg.Sender.Source.Path = *source
		}
	})

	fmt.Fprintf(stdout, "Delay is: %d milliseconds\n", args.delayMs)

	level, err := parseLogLevel(cfg.Sender.Logging.Level)
	if err != nil {
		fmt.Fprintf(stderr, "invalid logging config: %v\n", err)
		return 1
	}
	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = level
	lf.Writer = stderr

	o, err := cfg.Sender.Coding.buildOti(args.symbols)
	if err != nil {
		fmt.Fprintf(stderr, "invalid coding config: %v\n", err)
		return 1
	}
	if args.packets < args.symbols {
		fmt.Fprintf(stdout, "%s: number of packets should be at least %d\n", prog, args.symbols)
		return 1
	}

	nw, err := newNet()
	if err != nil {
		fmt.Fprintf(stdout, "%s: cannot open socket\n", prog)
		return 1
	}
	endpoint := transport.NewUDPEndpoint(&cfg.Sender.Network.BindAddress, args.host, args.port)
	endpoint.BindPort = cfg.Sender.Network.BindPort
	tr, err := transport.Dial(nw, endpoint, &transport.Options{
		TOS:           cfg.Sender.Network.TOS,
		LoggerFactory: lf,
	})
	if err != nil {
		switch sender.KindOf(err) {
		case sender.KindResolution:
			fmt.Fprintf(stdout, "%s: unknown host '%s'\n", prog, args.host)
		default:
			fmt.Fprintf(stdout, "%s: cannot open socket\n", prog)
		}
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer tr.Close()
	fmt.Fprintf(stdout, "Sending data to '%s:%d' (IP: %s)\n", args.host, args.port, tr.RemoteAddr().IP)

	seedVal := time.Now().UnixNano()
	if cfg.Sender.Coding.Seed != nil {
		seedVal = *cfg.Sender.Coding.Seed
	}
	blk, err := buildBlock(cfg.Sender.Source.Path, rand.New(rand.NewSource(seedVal)), int(o.Symbols), int(o.SymbolSize))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}
	if cfg.Sender.Source.Path != "" {
		fmt.Fprintf(stdout, "[otf-sender] source %s: %d bytes, %d of %d symbols\n",
			cfg.Sender.Source.Path, blk.SourceLength, blk.SourceSymbols(), blk.Symbols)
	}

	enc, err := fec.NewEncoder(o, rand.New(rand.NewSource(seedVal+1)), lf)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}
	fmt.Fprintf(stdout, "[otf-sender] codec: %v, symbols: %d, symbol size: %d bytes, block: %d bytes, payload size: %d bytes\n",
		o.CodecID, o.Symbols, o.SymbolSize, o.BlockSize(), enc.PayloadSize())

	scfg := sender.Config{
		PacketCount:      args.packets,
		InterPacketDelay: time.Duration(args.delayMs) * time.Millisecond,
		LoggerFactory:    lf,
	}
	if cfg.Sender.MaxRateKbps != nil {
		scfg.MaxRateKbps = *cfg.Sender.MaxRateKbps
	}
	s := sender.NewSender(blk, enc, tr, &scfg)
	if cfg.Sender.Logging.Progress == nil || *cfg.Sender.Logging.Progress {
		s.Subscribe(&progressPrinter{w: stdout})
	}

	rep, err := s.Run(context.Background())
	if err != nil {
		var se *sender.Error
		if errors.As(err, &se) && se.Kind == sender.KindTransmission {
			fmt.Fprintf(stdout, "%s: cannot send packet %d\n", prog, se.Iteration)
		} else {
			fmt.Fprintf(stdout, "%s: %v\n", prog, err)
		}
		return 1
	}

	printSummary(stdout, rep)
	return 0
}

func parseArgs(pos []string) (cliArgs, error) {
	var a cliArgs
	a.host = pos[0]

	port, err := strconv.ParseUint(pos[1], 10, 16)
	if err != nil {
		return a, fmt.Errorf("invalid port '%s'", pos[1])
	}
	a.port = uint16(port)

	symbols, err := strconv.Atoi(pos[2])
	if err != nil || symbols <= 0 {
		return a, fmt.Errorf("invalid symbols '%s'", pos[2])
	}
	a.symbols = symbols

	packets, err := strconv.Atoi(pos[3])
	if err != nil || packets < 0 {
		return a, fmt.Errorf("invalid packets '%s'", pos[3])
	}
	a.packets = packets

	a.delayMs, err = strconv.ParseUint(pos[4], 10, 32)
	if err != nil {
		return a, fmt.Errorf("invalid delay_ms '%s'", pos[4])
	}
	return a, nil
}

func buildBlock(path string, rng *rand.Rand, symbols, symbolSize int) (*object.Block, error) {
	if path == "" {
		return object.NewBlockFromReader(rng, symbols, symbolSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	return object.NewBlockFromReader(f, symbols, symbolSize)
}

// progressPrinter 每个生成的包打印一行 rank/bytes_used
type progressPrinter struct {
	w io.Writer
}

func (p *progressPrinter) OnSenderEvent(evt sender.Event, _ time.Time) {
	if evt.Kind != sender.EventPayloadGenerated {
		return
	}
	fmt.Fprintf(p.w, "[otf-sender] rank=%d bytes_used=%d\n", evt.Rank, evt.BytesUsed)
}

// 收尾统计
func printSummary(w io.Writer, rep sender.Report) {
	avgMbps := tools.Mbps(rep.Bytes, rep.Elapsed)
	fmt.Fprintln(w, "============================================")
	fmt.Fprintln(w, "BLOCK TRANSFER COMPLETED")
	fmt.Fprintln(w, "============================================")
	fmt.Fprintf(w, "Total time:      %.2f s\n", rep.Elapsed.Seconds())
	fmt.Fprintf(w, "Total packets:   %d\n", rep.Packets)
	fmt.Fprintf(w, "Final rank:      %d\n", rep.FinalRank)
	fmt.Fprintf(w, "Total data sent: %d bytes\n", rep.Bytes)
	fmt.Fprintf(w, "Average rate:    %.2f Mbps\n", avgMbps)
	fmt.Fprintln(w, "============================================")
}
