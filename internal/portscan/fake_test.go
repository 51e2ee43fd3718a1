package portscan

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// fakeNet 确定性的假网络: open 中的端口连接成功，silent 中的端口一直等到超时，
// unreachable 中的端口返回其他错误，其余端口返回 ECONNREFUSED
type fakeNet struct {
	open        map[int]bool
	silent      map[int]bool
	unreachable map[int]bool

	mu    sync.Mutex
	dials map[int]int
}

func newFakeNet(open ...int) *fakeNet {
	f := &fakeNet{
		open:        make(map[int]bool),
		silent:      make(map[int]bool),
		unreachable: make(map[int]bool),
		dials:       make(map[int]int),
	}
	for _, p := range open {
		f.open[p] = true
	}
	return f
}

func (f *fakeNet) dialer(time.Duration) Dialer { return f }

func (f *fakeNet) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.dials[port]++
	f.mu.Unlock()

	switch {
	case f.open[port]:
		client, server := net.Pipe()
		server.Close()
		return client, nil
	case f.silent[port]:
		<-ctx.Done()
		return nil, &net.OpError{Op: "dial", Net: network, Err: ctx.Err()}
	case f.unreachable[port]:
		return nil, &net.OpError{Op: "dial", Net: network, Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)}
	default:
		return nil, &net.OpError{Op: "dial", Net: network, Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	}
}

func (f *fakeNet) dialCounts() map[int]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]int, len(f.dials))
	for k, v := range f.dials {
		out[k] = v
	}
	return out
}

// countingProber 记录调用次数，可选地在指定端口 panic
type countingProber struct {
	mu      sync.Mutex
	calls   int
	panicOn map[int]bool
	open    map[int]bool
}

func (c *countingProber) Probe(ctx context.Context, host string, port int, timeout time.Duration) Outcome {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.panicOn[port] {
		panic(fmt.Sprintf("socket exhausted on %d", port))
	}
	if c.open[port] {
		return Outcome{Port: port, State: StateOpen}
	}
	return Outcome{Port: port, State: StateClosed}
}

func (c *countingProber) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
