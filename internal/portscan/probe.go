package portscan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Dialer 抽象出底层的连接原语，测试里用假网络替换
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober 对单个 (host, port) 做一次带超时的连接尝试
type Prober interface {
	Probe(ctx context.Context, host string, port int, timeout time.Duration) Outcome
}

// DialerFunc 根据超时构造 Dialer
type DialerFunc func(timeout time.Duration) Dialer

// ConnectProber TCP 全连接探测 (无需 Root)
type ConnectProber struct {
	newDialer DialerFunc
}

// NewConnectProber newDialer 为 nil 时使用 net.Dialer
func NewConnectProber(newDialer DialerFunc) *ConnectProber {
	if newDialer == nil {
		newDialer = defaultDialer
	}
	return &ConnectProber{newDialer: newDialer}
}

func defaultDialer(timeout time.Duration) Dialer {
	return &net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1, // 扫描不需要保持连接
	}
}

// Probe 连接成功立即关闭；任何失败都归类为 Outcome，不会返回 error
func (p *ConnectProber) Probe(ctx context.Context, host string, port int, timeout time.Duration) Outcome {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.newDialer(timeout).DialContext(ctx, "tcp", address)
	if err != nil {
		return Classify(port, err)
	}
	conn.Close()
	return Outcome{Port: port, State: StateOpen}
}

// Classify 把拨号错误映射为 Closed / TimedOut / Error
func Classify(port int, err error) Outcome {
	if err == nil {
		return Outcome{Port: port, State: StateOpen}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return Outcome{Port: port, State: StateClosed}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Port: port, State: StateTimedOut}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Outcome{Port: port, State: StateTimedOut}
	}
	return Outcome{Port: port, State: StateError, Detail: err.Error()}
}
