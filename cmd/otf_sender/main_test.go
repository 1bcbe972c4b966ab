package main

import (
	"Otf_go/pkg/fec"
	"Otf_go/pkg/oti"
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pion/logging"
	ptransport "github.com/pion/transport/v4"
	"github.com/pion/transport/v4/vnet"
)

// useVNet 将 newNet 替换为虚拟网络，返回接收端
func useVNet(t *testing.T) *vnet.Net {
	t.Helper()
	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = logging.LogLevelDisabled
	router, err := vnet.NewRouter(&vnet.RouterConfig{CIDR: "1.2.3.0/24", LoggerFactory: lf})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	senderNet, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"1.2.3.4"}})
	if err != nil {
		t.Fatalf("NewNet failed: %v", err)
	}
	receiverNet, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"1.2.3.5"}})
	if err != nil {
		t.Fatalf("NewNet failed: %v", err)
	}
	for _, n := range []*vnet.Net{senderNet, receiverNet} {
		if err := router.AddNet(n); err != nil {
			t.Fatalf("AddNet failed: %v", err)
		}
	}
	if err := router.AddHost("receiver.test", "1.2.3.5"); err != nil {
		t.Fatalf("AddHost failed: %v", err)
	}
	if err := router.Start(); err != nil {
		t.Fatalf("router start failed: %v", err)
	}
	t.Cleanup(func() { _ = router.Stop() })

	orig := newNet
	newNet = func() (ptransport.Net, error) { return senderNet, nil }
	t.Cleanup(func() { newNet = orig })
	return receiverNet
}

func readPayloads(t *testing.T, rx net.PacketConn, want int) []*fec.Payload {
	t.Helper()
	buf := make([]byte, 2048)
	var got []*fec.Payload
	for len(got) < want {
		_ = rx.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := rx.ReadFrom(buf)
		if err != nil {
			t.Fatalf("received %d of %d payloads: %v", len(got), want, err)
		}
		p, err := fec.ParsePayload(append([]byte(nil), buf[:n]...))
		if err != nil {
			t.Fatalf("ParsePayload failed: %v", err)
		}
		got = append(got, p)
	}
	return got
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"localhost", "5000"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stdout.String(), "usage:") {
		t.Fatalf("missing usage line: %q", stdout.String())
	}
}

func TestRunNonNumericArgs(t *testing.T) {
	cases := [][]string{
		{"localhost", "port", "4", "4", "0"},
		{"localhost", "5000", "x", "4", "0"},
		{"localhost", "5000", "4", "-1", "0"},
		{"localhost", "5000", "4", "4", "soon"},
	}
	for _, args := range cases {
		var stdout, stderr bytes.Buffer
		if code := run(args, &stdout, &stderr); code != 1 {
			t.Fatalf("%v: expected exit 1, got %d", args, code)
		}
	}
}

func TestRunPacketsBelowSymbols(t *testing.T) {
	called := false
	orig := newNet
	newNet = func() (ptransport.Net, error) {
		called = true
		return nil, errors.New("should not dial")
	}
	defer func() { newNet = orig }()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"localhost", "5000", "5", "3", "0"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if called {
		t.Fatalf("socket opened although packets < symbols")
	}
	if !strings.Contains(stdout.String(), "at least 5") {
		t.Fatalf("message should name the minimum: %q", stdout.String())
	}
}

func TestRunSendsOverVNet(t *testing.T) {
	receiverNet := useVNet(t)
	rx, err := receiverNet.ListenPacket("udp4", "1.2.3.5:5100")
	if err != nil {
		t.Fatalf("receiver listen failed: %v", err)
	}
	defer rx.Close()

	var stdout, stderr bytes.Buffer
	args := []string{"-bind", "1.2.3.4", "-seed", "7", "-symbol-size", "32", "-log-level", "disabled",
		"receiver.test", "5100", "4", "6", "0"}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d\nstdout: %s\nstderr: %s", code, stdout.String(), stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "Delay is: 0 milliseconds") {
		t.Fatalf("missing delay line: %q", out)
	}
	if !strings.Contains(out, "Sending data to 'receiver.test:5100' (IP: 1.2.3.5)") {
		t.Fatalf("missing destination line: %q", out)
	}
	if n := strings.Count(out, "bytes_used="); n != 6 {
		t.Fatalf("expected 6 progress lines, got %d", n)
	}
	if !strings.Contains(out, "Total packets:   6") {
		t.Fatalf("missing summary: %q", out)
	}

	payloads := readPayloads(t, rx, 6)
	for i, p := range payloads {
		if p.CodecID != oti.OnTheFlyBinary8 || int(p.Symbols) != 4 {
			t.Fatalf("payload %d: unexpected header %+v", i, p)
		}
		if i < 4 && !p.Systematic {
			t.Fatalf("payload %d should be systematic", i)
		}
		if i >= 4 && p.Systematic {
			t.Fatalf("payload %d should be coded", i)
		}
	}
}

func TestRunReadsSourceFile(t *testing.T) {
	receiverNet := useVNet(t)
	rx, err := receiverNet.ListenPacket("udp4", "1.2.3.5:5101")
	if err != nil {
		t.Fatalf("receiver listen failed: %v", err)
	}
	defer rx.Close()

	src := filepath.Join(t.TempDir(), "source.bin")
	content := bytes.Repeat([]byte("otf"), 10)
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatalf("write source failed: %v", err)
	}

	var stdout, stderr bytes.Buffer
	args := []string{"-bind", "1.2.3.4", "-codec", "no_code", "-symbol-size", "16", "-source", src,
		"-log-level", "disabled", "1.2.3.5", "5101", "2", "2", "0"}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d\nstdout: %s\nstderr: %s", code, stdout.String(), stderr.String())
	}

	payloads := readPayloads(t, rx, 2)
	var joined []byte
	for _, p := range payloads {
		joined = append(joined, p.Symbol...)
	}
	want := append(append([]byte(nil), content...), make([]byte, 32-len(content))...)
	if !bytes.Equal(joined, want) {
		t.Fatalf("received block mismatch:\n got %x\nwant %x", joined, want)
	}
}

func TestRunUnknownHost(t *testing.T) {
	useVNet(t)
	var stdout, stderr bytes.Buffer
	args := []string{"-bind", "1.2.3.4", "-log-level", "disabled", "nowhere.test", "5100", "2", "2", "0"}
	if code := run(args, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stdout.String(), "unknown host 'nowhere.test'") {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "Sending data to") {
		t.Fatalf("sending started after resolution failure")
	}
}

func TestRunManySymbols(t *testing.T) {
	receiverNet := useVNet(t)
	rx, err := receiverNet.ListenPacket("udp4", "1.2.3.5:5200")
	if err != nil {
		t.Fatalf("receiver listen failed: %v", err)
	}
	defer rx.Close()

	var stdout, stderr bytes.Buffer
	args := []string{"-bind", "1.2.3.4", "-codec", "full_vector", "-symbol-size", "8", "-seed", "3",
		"-log-level", "disabled", "1.2.3.5", "5200", "300", "300", "0"}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d\nstderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Final rank:      300") {
		t.Fatalf("missing final rank: %q", stdout.String())
	}

	payloads := readPayloads(t, rx, 300)
	last := payloads[len(payloads)-1]
	if int(last.Rank) != 300 || len(last.Coefficients) != 300 {
		t.Fatalf("last payload should combine all 300 symbols, got rank %d", last.Rank)
	}
}

func TestRunSymbolSizeOverflow(t *testing.T) {
	called := false
	orig := newNet
	newNet = func() (ptransport.Net, error) {
		called = true
		return nil, errors.New("should not dial")
	}
	defer func() { newNet = orig }()

	var stdout, stderr bytes.Buffer
	args := []string{"-symbol-size", "65537", "localhost", "5000", "2", "2", "0"}
	if code := run(args, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if called {
		t.Fatalf("socket opened with an invalid symbol size")
	}
	if !strings.Contains(stderr.String(), "symbol size 65537") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}
