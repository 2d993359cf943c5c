package pipeline

import (
	"errors"
	"fmt"
)

var ErrIllegalTransition = errors.New("illegal turn state transition")

// TurnState 一次轮次的处理阶段
type TurnState string

const (
	StateIdle          TurnState = "IDLE"
	StateAudioReceived TurnState = "AUDIO_RECEIVED"
	StateTranscribing  TurnState = "TRANSCRIBING"
	StateTranscribed   TurnState = "TRANSCRIBED"
	StateGenerating    TurnState = "GENERATING"
	StateSynthesizing  TurnState = "SYNTHESIZING"
	StateComplete      TurnState = "COMPLETE"
	StateError         TurnState = "ERROR"
)

var transitions = map[TurnState][]TurnState{
	StateIdle:          {StateAudioReceived, StateTranscribed},
	StateAudioReceived: {StateTranscribing},
	StateTranscribing:  {StateTranscribed},
	StateTranscribed:   {StateGenerating},
	StateGenerating:    {StateSynthesizing, StateComplete},
	StateSynthesizing:  {StateComplete},
}

func (s TurnState) Terminal() bool {
	return s == StateComplete || s == StateError
}

// CanTransition ERROR 可从任意非终止状态进入
func (s TurnState) CanTransition(next TurnState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateError {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// TurnMachine 记录轮次状态，只在单个 goroutine 中使用
type TurnMachine struct {
	state TurnState
	trail []TurnState
}

func NewTurnMachine() *TurnMachine {
	return &TurnMachine{state: StateIdle, trail: []TurnState{StateIdle}}
}

func (m *TurnMachine) State() TurnState { return m.state }

// Trail 经过的全部状态
func (m *TurnMachine) Trail() []TurnState {
	return append([]TurnState(nil), m.trail...)
}

func (m *TurnMachine) To(next TurnState) error {
	if !m.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, next)
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}
