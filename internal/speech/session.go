package speech

import (
	"sync"

	"github.com/google/uuid"
	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/logger"
)

// Outcome 是会话的终止方式。
type Outcome int

const (
	// OutcomeCompleted — 自然播放完毕。
	OutcomeCompleted Outcome = iota
	// OutcomeCancelled — 被 StopSpeech/StopAllSpeeches 或同 tag 的新语音取消，不是错误。
	OutcomeCancelled
	// OutcomeFailed — 设备报错，Message 非空。
	OutcomeFailed
)

var outcomeNames = [...]string{"Completed", "Cancelled", "Failed"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "Unknown"
}

// Result 是会话完成信号的值。
type Result struct {
	Outcome Outcome
	Message string
}

const unknownDeviceError = "未知播放错误"

func failed(msg string) Result {
	if msg == "" {
		msg = unknownDeviceError
	}
	return Result{Outcome: OutcomeFailed, Message: msg}
}

// Session 是一段缓冲从开始播放到结束/停止/出错的全过程。
type Session struct {
	ID     string
	Tag    string
	Buffer []float32

	mu       sync.Mutex
	state    *StateMachine
	src      audio.Source
	result   Result
	resolved bool

	done    chan struct{} // 完成信号，终止时关闭
	settled chan struct{} // 终止事件已发布且已从 VoiceContext 移除
}

func newSession(tag string, buffer []float32) *Session {
	s := &Session{
		ID:      uuid.New().String(),
		Tag:     tag,
		Buffer:  buffer,
		state:   NewStateMachine(),
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}
	s.state.SetOnChange(func(from, to State) {
		logger.Debugf("[speech] 会话 %s (tag=%s) %s → %s", s.ID, s.Tag, from, to)
	})
	return s
}

// State 返回会话当前状态。
func (s *Session) State() State {
	return s.state.Current()
}

// Done 在会话终止时关闭。
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result 返回终止结果，仅在 Done 关闭后有意义。
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Settled 在终止事件发布完毕、VoiceContext 槽位清空后关闭。
func (s *Session) Settled() <-chan struct{} {
	return s.settled
}

// start 在 sink 上经由 gain 打开并启动播放。失败时会话以 OutcomeFailed 终止。
func (s *Session) start(sink audio.Sink, gain *audio.Gain) {
	src, err := sink.Open(s.Buffer, gain)
	if err != nil {
		s.resolve(failed(err.Error()))
		return
	}

	s.mu.Lock()
	s.src = src
	s.mu.Unlock()

	if err := src.Start(); err != nil {
		if s.resolve(failed(err.Error())) {
			src.Disconnect()
		}
		return
	}

	s.mu.Lock()
	if s.state.Current() == StatePending {
		s.state.Transition(StatePlaying)
	}
	s.mu.Unlock()

	go s.watch(src)
}

func (s *Session) watch(src audio.Source) {
	select {
	case err := <-src.Ended():
		if err != nil {
			s.resolve(failed(err.Error()))
			return
		}
		s.resolve(Result{Outcome: OutcomeCompleted})
	case <-s.done:
	}
}

// Cancel 停止播放，若会话尚未终止则以 OutcomeCancelled 终止。可重复调用。
func (s *Session) Cancel() {
	if !s.resolve(Result{Outcome: OutcomeCancelled}) {
		return
	}
	s.mu.Lock()
	src := s.src
	s.mu.Unlock()
	if src != nil {
		src.Disconnect()
	}
}

// resolve 只有第一次调用生效，返回是否由本次调用终止会话。
func (s *Session) resolve(r Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return false
	}

	s.resolved = true
	s.result = r
	s.state.Transition(terminalState(r.Outcome))
	logger.Debugf("[speech] 会话 %s (tag=%s) 终止: %s %s", s.ID, s.Tag, r.Outcome, r.Message)
	close(s.done)
	return true
}

func (s *Session) markSettled() {
	close(s.settled)
}
