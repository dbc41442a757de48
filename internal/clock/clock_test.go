package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestManualFiresDueCallbacksInOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	m.AfterFunc(2*time.Second, func() { order = append(order, "two") })
	m.AfterFunc(time.Second, func() { order = append(order, "one") })
	m.AfterFunc(time.Second, func() { order = append(order, "one-b") })
	m.AfterFunc(5*time.Second, func() { order = append(order, "five") })

	m.Advance(2 * time.Second)
	require.Equal(t, []string{"one", "one-b", "two"}, order)
	require.Equal(t, epoch.Add(2*time.Second), m.Now())
	require.Equal(t, 1, m.Pending())
}

func TestManualStopPreventsCallback(t *testing.T) {
	m := NewManual(epoch)
	var fired atomic.Int32
	timer := m.AfterFunc(time.Second, func() { fired.Add(1) })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
	m.Advance(time.Minute)
	require.Equal(t, int32(0), fired.Load())
}

func TestManualStopAfterFireReturnsFalse(t *testing.T) {
	m := NewManual(epoch)
	timer := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	require.False(t, timer.Stop())
}

func TestManualChainedCallbacksFireWithinWindow(t *testing.T) {
	m := NewManual(epoch)
	var ticks int
	var tick func()
	tick = func() {
		ticks++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(5 * time.Second)
	require.Equal(t, 5, ticks)
	require.Equal(t, 1, m.Pending())
}

func TestRealAfterFuncFires(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real clock callback did not fire")
	}
}
