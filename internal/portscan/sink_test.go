package portscan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultSink_RecordOpenIsIdempotent(t *testing.T) {
	sink := NewResultSink(10)
	sink.RecordOpen(80)
	sink.RecordOpen(80)
	sink.RecordOpen(22)

	ports, completed := sink.Snapshot()
	assert.Equal(t, []int{22, 80}, ports)
	assert.Zero(t, completed)
}

func TestResultSink_RecordTalliesEveryState(t *testing.T) {
	sink := NewResultSink(4)
	sink.Record(Outcome{Port: 1, State: StateOpen})
	sink.Record(Outcome{Port: 2, State: StateClosed})
	sink.Record(Outcome{Port: 3, State: StateTimedOut})
	sink.Record(Outcome{Port: 4, State: StateError, Detail: "no route to host"})

	assert.Equal(t, Tally{Open: 1, Closed: 1, TimedOut: 1, Errored: 1}, sink.Tally())
	assert.Equal(t, Progress{Completed: 4, Total: 4}, sink.Progress())

	ports, _ := sink.Snapshot()
	assert.Equal(t, []int{1}, ports)
}

func TestResultSink_ConcurrentWritersAndReaders(t *testing.T) {
	const total = 2000
	sink := NewResultSink(total)

	done := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		last := 0
		for {
			select {
			case <-done:
				return
			default:
			}
			p := sink.Progress()
			// 单调不减且不超过总数
			assert.GreaterOrEqual(t, p.Completed, last)
			assert.LessOrEqual(t, p.Completed, p.Total)
			last = p.Completed
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < 20; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for p := w; p < total; p += 20 {
				state := StateClosed
				if p%100 == 0 {
					state = StateOpen
				}
				sink.Record(Outcome{Port: p, State: state})
			}
		}(w)
	}
	wg.Wait()
	close(done)
	readers.Wait()

	ports, completed := sink.Snapshot()
	assert.Equal(t, total, completed)
	assert.Len(t, ports, total/100)
	assert.IsIncreasing(t, ports)
}

func TestResultSink_PerPortCallsKeepCountsConsistent(t *testing.T) {
	sink := NewResultSink(3)
	sink.RecordOpen(22)
	sink.RecordCompletion()
	// 同一端口再次记录不会重复计数
	sink.RecordOpen(22)
	sink.RecordCompletion()
	sink.RecordOpen(80)
	sink.RecordCompletion()

	ports, completed := sink.Snapshot()
	assert.Equal(t, []int{22, 80}, ports)
	assert.Equal(t, 3, completed)
	assert.Equal(t, Tally{Open: 2}, sink.Tally())
	assert.Equal(t, len(ports), sink.Tally().Open)
	assert.Equal(t, Progress{Completed: 3, Total: 3}, sink.Progress())
}

func TestResultSink_RecordOpenTwiceCountsOnce(t *testing.T) {
	sink := NewResultSink(2)
	sink.Record(Outcome{Port: 443, State: StateOpen})
	sink.Record(Outcome{Port: 443, State: StateOpen})

	assert.Equal(t, 1, sink.Tally().Open)
	assert.Equal(t, 2, sink.Progress().Completed)
}
