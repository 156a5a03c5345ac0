package speech

import (
	"sync"

	"github.com/iabetor/samspeech/internal/logger"
)

// State 表示播放会话的当前状态。
type State int

const (
	// StatePending — 已创建，尚未接入设备。
	StatePending State = iota
	// StatePlaying — 正在播放。
	StatePlaying
	// StateEnded — 自然播放完毕。
	StateEnded
	// StateStopped — 被取消。
	StateStopped
	// StateFailed — 设备报错。
	StateFailed
)

var stateNames = [...]string{
	"Pending",
	"Playing",
	"Ended",
	"Stopped",
	"Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Terminal 报告状态是否为终止态。
func (s State) Terminal() bool {
	return s == StateEnded || s == StateStopped || s == StateFailed
}

func terminalState(o Outcome) State {
	switch o {
	case OutcomeCancelled:
		return StateStopped
	case OutcomeFailed:
		return StateFailed
	}
	return StateEnded
}

// StateMachine 管理线程安全的状态转换。
type StateMachine struct {
	mu       sync.RWMutex
	current  State
	onChange func(from, to State)
}

// NewStateMachine 创建一个初始状态为 Pending 的状态机。
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StatePending,
	}
}

// SetOnChange 注册状态变化时的回调函数。
func (sm *StateMachine) SetOnChange(fn func(from, to State)) {
	sm.mu.Lock()
	sm.onChange = fn
	sm.mu.Unlock()
}

// Current 返回当前状态。
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Transition 尝试切换状态。只有合法的转换才会生效：
//
//	Pending → Playing              （设备开始播放）
//	Pending → Stopped | Failed     （启动前被取消或启动失败）
//	Playing → Ended | Stopped | Failed
//
// 终止态不再变化。
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !validTransition(sm.current, to) {
		logger.Debugf("[speech] 非法转换 %s → %s", sm.current, to)
		return false
	}

	from := sm.current
	sm.current = to

	if sm.onChange != nil {
		sm.onChange(from, to)
	}
	return true
}

// validTransition 检查状态转换是否合法。
func validTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StatePlaying || to == StateStopped || to == StateFailed
	case StatePlaying:
		return to.Terminal()
	}
	return false
}
