package main

import (
	"Otf_go/pkg/oti"
	"fmt"
	"os"
	"strings"

	"github.com/pion/logging"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Sender SenderConfigSection `yaml:"sender"`
}

type SenderConfigSection struct {
	Network     SenderNetworkConfig `yaml:"network"`
	Coding      SenderCodingConfig  `yaml:"coding"`
	Source      SenderSourceConfig  `yaml:"source"`
	Logging     SenderLoggingConfig `yaml:"logging"`
	MaxRateKbps *uint32             `yaml:"max_rate_kbps,omitempty"` // 额外限速
}

type SenderNetworkConfig struct {
	BindAddress string `yaml:"bind_address"` // "0.0.0.0"
	BindPort    uint16 `yaml:"bind_port"`    // 0 = 任意
	TOS         int    `yaml:"tos"`          // IP TOS/DSCP，0 = 不设置
}

type SenderCodingConfig struct {
	Type       string `yaml:"type"` // "on_the_fly" | "full_vector" | "no_code"
	SymbolSize uint16 `yaml:"symbol_size"`
	Systematic *bool  `yaml:"systematic,omitempty"`
	Seed       *int64 `yaml:"seed,omitempty"` // nil = 按时间播种
}

type SenderSourceConfig struct {
	// Path 源文件；为空时用随机数据填充整个块
	Path string `yaml:"path"`
}

type SenderLoggingConfig struct {
	Level    string `yaml:"level"`    // disabled|error|warn|info|debug|trace
	Progress *bool  `yaml:"progress"` // 每个包打印 rank/bytes_used
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Sender: SenderConfigSection{
			Network: SenderNetworkConfig{BindAddress: "0.0.0.0"},
			Coding: SenderCodingConfig{
				Type:       "on_the_fly",
				SymbolSize: oti.DefaultSymbolSize,
			},
			Logging: SenderLoggingConfig{Level: "warn"},
		},
	}
}

// loadConfig 在默认值之上叠加 YAML 文件内容
func loadConfig(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

func (c *SenderCodingConfig) buildOti(symbols int) (*oti.Oti, error) {
	if symbols <= 0 || symbols > oti.MaxSymbols {
		return nil, fmt.Errorf("invalid symbol count %d", symbols)
	}
	id, err := oti.CodecIDFromName(c.Type)
	if err != nil {
		return nil, err
	}

	systematic := true
	if c.Systematic != nil {
		systematic = *c.Systematic
	}

	var o *oti.Oti
	switch id {
	case oti.NoCode:
		o = oti.NewNoCode(uint16(symbols), c.SymbolSize)
		err = o.Validate()
	case oti.OnTheFlyBinary8:
		o, err = oti.NewOnTheFly(uint16(symbols), c.SymbolSize, systematic)
	case oti.FullVectorBinary8:
		o, err = oti.NewFullVector(uint16(symbols), c.SymbolSize)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func parseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "", "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level: %s", s)
	}
}
