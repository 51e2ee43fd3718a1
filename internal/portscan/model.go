package portscan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// ErrInvalidConfig 所有配置错误都可以用 errors.Is 匹配到它
var ErrInvalidConfig = errors.New("invalid scan config")

// ConfigError 扫描开始前的配置校验错误
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// PortRange 闭区间 [Start, End]
type PortRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Size 区间内的端口总数
func (r PortRange) Size() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Config 一次扫描的配置，扫描期间不会被修改
type Config struct {
	Target  string
	Range   PortRange
	Workers int
	Timeout time.Duration
}

// Validate 在启动任何 worker 之前完成全部校验
func Validate(cfg Config) (Config, error) {
	if strings.TrimSpace(cfg.Target) == "" {
		return Config{}, &ConfigError{Field: "target", Reason: "must not be empty"}
	}
	r := cfg.Range
	if r.Start < MinPort || r.Start > MaxPort {
		return Config{}, &ConfigError{Field: "range", Reason: fmt.Sprintf("start port %d out of %d-%d", r.Start, MinPort, MaxPort)}
	}
	if r.End < MinPort || r.End > MaxPort {
		return Config{}, &ConfigError{Field: "range", Reason: fmt.Sprintf("end port %d out of %d-%d", r.End, MinPort, MaxPort)}
	}
	if r.Start > r.End {
		return Config{}, &ConfigError{Field: "range", Reason: fmt.Sprintf("start port %d greater than end port %d", r.Start, r.End)}
	}
	if cfg.Workers < 1 {
		return Config{}, &ConfigError{Field: "workers", Reason: "must be at least 1"}
	}
	if cfg.Timeout <= 0 {
		return Config{}, &ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	cfg.Target = strings.TrimSpace(cfg.Target)
	return cfg, nil
}

// State 单次连接尝试的分类
type State int

const (
	StateOpen     State = iota // 三次握手完成
	StateClosed                // 对端主动拒绝 (RST)
	StateTimedOut              // 超时内没有响应
	StateError                 // 其他失败: 不可达、解析失败、资源耗尽...
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateTimedOut:
		return "timeout"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome 单个端口的扫描结果，Detail 只在 StateError 时有值
type Outcome struct {
	Port   int
	State  State
	Detail string
}

func (o Outcome) IsOpen() bool { return o.State == StateOpen }

// Progress 可以在扫描过程中随时读取
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Tally 各类结果的计数
type Tally struct {
	Open     int `json:"open"`
	Closed   int `json:"closed"`
	TimedOut int `json:"timed_out"`
	Errored  int `json:"errored"`
}

// Report 扫描结束后生成，之后不再修改
type Report struct {
	Target    string        `json:"target"`
	Range     PortRange     `json:"range"`
	OpenPorts []int         `json:"open_ports"`
	Total     int           `json:"total"`
	Tally     Tally         `json:"tally"`
	Elapsed   time.Duration `json:"elapsed"`
}
