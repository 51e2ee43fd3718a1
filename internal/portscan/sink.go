package portscan

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ResultSink 汇总所有 worker 的结果，内部自带互斥，调用方无需加锁
type ResultSink struct {
	mu    sync.Mutex
	open  map[int]struct{}
	tally Tally

	completed atomic.Int64
	total     int
}

func NewResultSink(total int) *ResultSink {
	return &ResultSink{
		open:  make(map[int]struct{}),
		total: total,
	}
}

// RecordOpen 重复记录同一端口是幂等的，Open 计数只在首次记录时增加
func (s *ResultSink) RecordOpen(port int) {
	s.mu.Lock()
	if _, ok := s.open[port]; !ok {
		s.open[port] = struct{}{}
		s.tally.Open++
	}
	s.mu.Unlock()
}

// RecordCompletion 每次连接尝试结束后调用且只调用一次
func (s *ResultSink) RecordCompletion() {
	s.completed.Add(1)
}

// Record 记录一次完整的结果: 计数 + 开放端口 + 完成数
func (s *ResultSink) Record(o Outcome) {
	if o.IsOpen() {
		s.RecordOpen(o.Port)
	} else {
		s.mu.Lock()
		switch o.State {
		case StateClosed:
			s.tally.Closed++
		case StateTimedOut:
			s.tally.TimedOut++
		default:
			s.tally.Errored++
		}
		s.mu.Unlock()
	}
	s.RecordCompletion()
}

// Progress 只读原子计数，不会和写入者争锁
func (s *ResultSink) Progress() Progress {
	return Progress{Completed: int(s.completed.Load()), Total: s.total}
}

// Snapshot 返回当前开放端口 (升序) 和完成数
func (s *ResultSink) Snapshot() ([]int, int) {
	s.mu.Lock()
	ports := make([]int, 0, len(s.open))
	for p := range s.open {
		ports = append(ports, p)
	}
	s.mu.Unlock()
	sort.Ints(ports)
	return ports, int(s.completed.Load())
}

// Tally 各状态计数的拷贝
func (s *ResultSink) Tally() Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tally
}
