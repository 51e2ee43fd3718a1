package portscan

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Option 配置 Scanner
type Option func(*Scanner)

// WithLogger 默认不输出日志
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProber 替换默认的 TCP 全连接探测
func WithProber(p Prober) Option {
	return func(s *Scanner) {
		if p != nil {
			s.prober = p
		}
	}
}

// Scanner 负责一次扫描会话: 校验配置、驱动 worker 池、计时、生成报告
type Scanner struct {
	cfg    Config
	prober Prober
	logger *zap.Logger

	sink atomic.Pointer[ResultSink]
}

// NewScanner 创建一个新的扫描器实例，配置在 Execute 时才校验
func NewScanner(cfg Config, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:    cfg,
		prober: NewConnectProber(nil),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config 返回创建时传入的配置
func (s *Scanner) Config() Config {
	return s.cfg
}

// Execute 阻塞直到所有端口扫描完毕
// 只有配置错误会返回 error，此时不会发出任何探测
func (s *Scanner) Execute(ctx context.Context) (*Report, error) {
	cfg, err := Validate(s.cfg)
	if err != nil {
		return nil, err
	}

	// 每次执行都使用新的任务源和结果汇总
	total := cfg.Range.Size()
	src := NewWorkSource(cfg.Range)
	sink := NewResultSink(total)
	s.sink.Store(sink)

	s.logger.Info("scan started",
		zap.String("target", cfg.Target),
		zap.Stringer("range", cfg.Range),
		zap.Int("workers", cfg.Workers),
		zap.Duration("timeout", cfg.Timeout))

	startTime := time.Now()
	NewWorkerPool(cfg.Workers, s.prober, s.logger).Run(ctx, cfg, src, sink)
	elapsed := time.Since(startTime)

	openPorts, completed := sink.Snapshot()
	report := &Report{
		Target:    cfg.Target,
		Range:     cfg.Range,
		OpenPorts: openPorts,
		Total:     completed,
		Tally:     sink.Tally(),
		Elapsed:   elapsed,
	}

	s.logger.Info("scan finished",
		zap.String("target", cfg.Target),
		zap.Int("ports_scanned", completed),
		zap.Int("open_ports", len(openPorts)),
		zap.Duration("elapsed", elapsed),
		zap.Float64("ports_per_second", portsPerSecond(completed, elapsed)))
	return report, nil
}

// portsPerSecond 时钟精度不足导致耗时为 0 时返回 0
func portsPerSecond(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

// Progress 可以在另一个 goroutine 里随时轮询
// 尚未开始时 Completed 为 0
func (s *Scanner) Progress() Progress {
	if sink := s.sink.Load(); sink != nil {
		return sink.Progress()
	}
	return Progress{Total: s.cfg.Range.Size()}
}

// OpenPorts 当前已发现的开放端口 (升序)
func (s *Scanner) OpenPorts() []int {
	if sink := s.sink.Load(); sink != nil {
		ports, _ := sink.Snapshot()
		return ports
	}
	return nil
}

// Scan 便捷入口: 创建 Scanner 并执行一次
func Scan(ctx context.Context, cfg Config, opts ...Option) (*Report, error) {
	return NewScanner(cfg, opts...).Execute(ctx)
}
