package portscan

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkerPool 固定数量的 worker 从同一个 WorkSource 拉取端口
// 快的 worker 自然会多拉，不需要额外的任务窃取
type WorkerPool struct {
	workers int
	prober  Prober
	logger  *zap.Logger
}

func NewWorkerPool(workers int, prober Prober, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{workers: workers, prober: prober, logger: logger}
}

// Run 启动全部 worker，直到每个 worker 都耗尽任务并完成最后一次探测才返回
func (wp *WorkerPool) Run(ctx context.Context, cfg Config, src *WorkSource, sink *ResultSink) {
	var g errgroup.Group
	for i := 0; i < wp.workers; i++ {
		id := i
		g.Go(func() error {
			wp.worker(ctx, id, cfg, src, sink)
			// 单个端口的失败已经记录为结果，不能让它取消其他 worker
			return nil
		})
	}
	_ = g.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int, cfg Config, src *WorkSource, sink *ResultSink) {
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("worker started")

	scanned := 0
	for {
		port, ok := src.Next()
		if !ok {
			break
		}
		o := wp.probe(ctx, log, cfg, port)
		log.Debug("port scanned",
			zap.Int("port", o.Port),
			zap.Stringer("state", o.State),
			zap.String("detail", o.Detail))
		// 无论结果如何都要记录完成数
		sink.Record(o)
		scanned++
	}
	log.Debug("worker finished", zap.Int("scanned", scanned))
}

// probe 在 worker 边界捕获 panic，转为该端口的 Error 结果，worker 继续下一个端口
func (wp *WorkerPool) probe(ctx context.Context, log *zap.Logger, cfg Config, port int) (o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker fault", zap.Int("port", port), zap.Any("panic", r))
			o = Outcome{Port: port, State: StateError, Detail: fmt.Sprintf("worker fault: %v", r)}
		}
	}()
	o = wp.prober.Probe(ctx, cfg.Target, port, cfg.Timeout)
	o.Port = port
	return o
}
