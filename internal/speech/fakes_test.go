package speech

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/tts"
)

// fakeDevices 是测试用的 SinkFactory，记录分配出的全部 sink。
type fakeDevices struct {
	mu       sync.Mutex
	sinks    []*fakeSink
	allocErr error
	startErr error

	gate    chan struct{} // 非 nil 时分配会阻塞到 gate 关闭
	waiting int
}

func (d *fakeDevices) factory() (audio.Sink, error) {
	d.mu.Lock()
	gate := d.gate
	if gate != nil {
		d.waiting++
	}
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allocErr != nil {
		return nil, d.allocErr
	}
	s := &fakeSink{startErr: d.startErr}
	d.sinks = append(d.sinks, s)
	return s, nil
}

// hold 让之后的分配阻塞，关闭返回的 channel 放行。
func (d *fakeDevices) hold() chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = make(chan struct{})
	return d.gate
}

func (d *fakeDevices) blocked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiting
}

func (d *fakeDevices) closedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sinks {
		if s.isClosed() {
			n++
		}
	}
	return n
}

func (d *fakeDevices) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sinks)
}

type fakeSink struct {
	mu          sync.Mutex
	sources     []*fakeSource
	heard       [][]float32
	startErr    error
	attached    int
	maxAttached int
	closed      bool
}

func (s *fakeSink) Open(samples []float32, gain *audio.Gain) (audio.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, audio.ErrSinkClosed
	}
	src := &fakeSource{sink: s, startErr: s.startErr, ended: make(chan error, 1)}
	s.sources = append(s.sources, src)
	s.heard = append(s.heard, gain.Apply(samples))
	return src, nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) attach(delta int) {
	s.mu.Lock()
	s.attached += delta
	if s.attached > s.maxAttached {
		s.maxAttached = s.attached
	}
	s.mu.Unlock()
}

func (s *fakeSink) last() *fakeSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sources) == 0 {
		return nil
	}
	return s.sources[len(s.sources)-1]
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSink) peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxAttached
}

// fakeSource 由测试决定何时自然结束或出错。
type fakeSource struct {
	sink     *fakeSink
	startErr error
	ended    chan error

	mu           sync.Mutex
	started      bool
	disconnected bool
	once         sync.Once
}

func (f *fakeSource) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	f.sink.attach(1)
	return nil
}

func (f *fakeSource) Disconnect() {
	f.once.Do(func() {
		f.mu.Lock()
		f.disconnected = true
		started := f.started
		f.mu.Unlock()
		if started {
			f.sink.attach(-1)
		}
	})
}

func (f *fakeSource) Ended() <-chan error { return f.ended }

// finish 模拟播放结束，err 非 nil 表示设备出错。断开后调用无效。
func (f *fakeSource) finish(err error) {
	f.once.Do(func() {
		f.sink.attach(-1)
		f.ended <- err
	})
}

func (f *fakeSource) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// lengthEngine 为每个字符生成一个值为 0.5 的样本。
var lengthEngine = tts.EngineFunc(func(_ context.Context, text string, _ tts.Params) ([]float32, error) {
	out := make([]float32, len(text))
	for i := range out {
		out[i] = 0.5
	}
	return out, nil
})

// recorder 按派发顺序记录事件。
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(bus *Bus, id string) *recorder {
	r := &recorder{}
	bus.Subscribe(id, func(e Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// wait 等待至少 n 个事件。
func (r *recorder) wait(t *testing.T, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		evs := r.snapshot()
		if len(evs) >= n {
			return evs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d events, got %d: %v", n, len(evs), types(evs))
		}
		time.Sleep(time.Millisecond)
	}
}

// settle 确认稍等之后事件总数恰好为 n。
func (r *recorder) settle(t *testing.T, n int) []Event {
	t.Helper()
	time.Sleep(30 * time.Millisecond)
	evs := r.snapshot()
	if len(evs) != n {
		t.Fatalf("expected exactly %d events, got %d: %v", n, len(evs), types(evs))
	}
	return evs
}

func types(evs []Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = string(e.Type) + "(" + e.Tag + ")"
	}
	return out
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting until %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
