package editor

import (
	"sync"
	"time"
)

// DefaultDebounceDelay 是条目内容更新的合并窗口。
const DefaultDebounceDelay = time.Second

// Timer 是可取消的定时回调句柄。
type Timer interface {
	Stop() bool
}

// Clock 抽象时间来源，测试中可以替换为手动推进的时钟。
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock 返回基于 time 包的真实时钟。
func SystemClock() Clock { return systemClock{} }

type pendingCall struct {
	timer Timer
	fn    func()
	seq   uint64
}

// Debouncer 对每个 key 最多保留一个待执行回调，新的触发会取消旧定时器并重新计时。
//
// 定时器到期时回调通过 exec 执行，Session 借此在自己的锁内运行回调。
type Debouncer struct {
	clock Clock
	delay time.Duration
	exec  func(func())

	mu      sync.Mutex
	seq     uint64
	pending map[Kind]*pendingCall
}

// NewDebouncer 创建 Debouncer。exec 为 nil 时直接在定时器 goroutine 中执行回调。
func NewDebouncer(clock Clock, delay time.Duration, exec func(func())) *Debouncer {
	if clock == nil {
		clock = SystemClock()
	}
	if exec == nil {
		exec = func(f func()) { f() }
	}
	return &Debouncer{
		clock:   clock,
		delay:   delay,
		exec:    exec,
		pending: make(map[Kind]*pendingCall),
	}
}

// Trigger 为 key 安排 fn，覆盖该 key 上尚未执行的回调。
func (d *Debouncer) Trigger(key Kind, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.seq++
	seq := d.seq
	call := &pendingCall{fn: fn, seq: seq}
	call.timer = d.clock.AfterFunc(d.delay, func() {
		d.exec(func() {
			if f := d.take(key, seq); f != nil {
				f()
			}
		})
	})
	d.pending[key] = call
}

// take 取出仍然有效的回调；定时器被后续触发取代或已被 Flush 时返回 nil。
func (d *Debouncer) take(key Kind, seq uint64) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	call, ok := d.pending[key]
	if !ok || call.seq != seq {
		return nil
	}
	delete(d.pending, key)
	return call.fn
}

// Flush 立即在当前 goroutine 执行 key 上的待执行回调，返回是否执行过。
func (d *Debouncer) Flush(key Kind) bool {
	d.mu.Lock()
	call, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
		call.timer.Stop()
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	call.fn()
	return true
}

// FlushAll 立即执行全部待执行回调。
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	keys := make([]Kind, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.mu.Unlock()

	for _, k := range keys {
		d.Flush(k)
	}
}

// Pending 报告 key 上是否有待执行回调。
func (d *Debouncer) Pending(key Kind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Cancel 丢弃全部待执行回调。
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, call := range d.pending {
		call.timer.Stop()
		delete(d.pending, k)
	}
}
