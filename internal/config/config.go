// Package config 加载命令行的扫描参数: 默认值 < YAML 配置文件 < 显式指定的命令行参数
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"PortScanGo/internal/portscan"
)

const (
	DefaultTarget  = "127.0.0.1"
	DefaultStart   = 1
	DefaultEnd     = 65535
	DefaultThreads = 500
	DefaultTimeout = 300 * time.Millisecond
)

// Config 前端使用的扫描参数
type Config struct {
	Target  string        `yaml:"target"`
	Start   int           `yaml:"start"`
	End     int           `yaml:"end"`
	Threads int           `yaml:"threads"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default 与原来命令行的默认值一致
func Default() Config {
	return Config{
		Target:  DefaultTarget,
		Start:   DefaultStart,
		End:     DefaultEnd,
		Threads: DefaultThreads,
		Timeout: DefaultTimeout,
	}
}

// fileConfig timeout 在文件里写成 "300ms" / "1s"
type fileConfig struct {
	Target  *string `yaml:"target"`
	Start   *int    `yaml:"start"`
	End     *int    `yaml:"end"`
	Threads *int    `yaml:"threads"`
	Timeout *string `yaml:"timeout"`
}

// Load 读取 YAML 文件并覆盖 base 中对应的字段，文件中未出现的字段保持不变
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, base)
}

// Parse 见 Load
func Parse(data []byte, base Config) (Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		// 空文件
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return base, fmt.Errorf("parse config: %w", err)
	}

	cfg := base
	if fc.Target != nil {
		cfg.Target = *fc.Target
	}
	if fc.Start != nil {
		cfg.Start = *fc.Start
	}
	if fc.End != nil {
		cfg.End = *fc.End
	}
	if fc.Threads != nil {
		cfg.Threads = *fc.Threads
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return base, fmt.Errorf("parse config: timeout %q: %w", *fc.Timeout, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// Marshal 输出为 YAML，可作为配置文件模板
func (c Config) Marshal() ([]byte, error) {
	timeout := c.Timeout.String()
	return yaml.Marshal(fileConfig{
		Target:  &c.Target,
		Start:   &c.Start,
		End:     &c.End,
		Threads: &c.Threads,
		Timeout: &timeout,
	})
}

// ScanConfig 转换为核心扫描配置，校验交给 portscan.Validate
func (c Config) ScanConfig() portscan.Config {
	return portscan.Config{
		Target:  c.Target,
		Range:   portscan.PortRange{Start: c.Start, End: c.End},
		Workers: c.Threads,
		Timeout: c.Timeout,
	}
}
