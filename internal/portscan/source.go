package portscan

// WorkSource 按升序分发端口，可被多个 worker 并发调用
// 通道在创建时填满并关闭，因此耗尽后 Next 立即返回 false，不会阻塞
type WorkSource struct {
	jobs chan int
}

// NewWorkSource 用整个端口区间初始化任务通道
func NewWorkSource(r PortRange) *WorkSource {
	jobs := make(chan int, r.Size())
	for p := r.Start; p <= r.End; p++ {
		jobs <- p
	}
	close(jobs)
	return &WorkSource{jobs: jobs}
}

// Next 返回下一个未被领取的端口；ok 为 false 表示已耗尽
func (w *WorkSource) Next() (port int, ok bool) {
	port, ok = <-w.jobs
	return port, ok
}
