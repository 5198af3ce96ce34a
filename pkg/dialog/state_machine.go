package dialog

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
)

// DialogStateMachine управляет состояниями диалога согласно RFC 3261.
//
// Состояния:
//   - Init: начальное состояние
//   - Trying: INVITE отправлен (UAC) или получен (UAS)
//   - Ringing: получен/отправлен 180 Ringing
//   - Established: диалог установлен (2xx + ACK)
//   - Terminating: BYE отправлен/получен
//   - Terminated: диалог завершен
//
// Легальность переходов проверяет looplab/fsm; currentState остаётся
// отдельным полем, а не читается напрямую из machine.Current(), потому что
// часть вызывающего кода (и тестов) переставляет состояние напрямую в
// обход событий — machine.SetState синхронизирует fsm перед каждым событием.
type DialogStateMachine struct {
	mu             sync.RWMutex
	currentState   DialogState
	isUAC          bool
	callbacks      []func(DialogState)
	allowedMethods map[DialogState][]string // Разрешенные методы в состоянии
	machine        *fsm.FSM
}

var dialogStates = []DialogState{
	DialogStateInit, DialogStateTrying, DialogStateRinging,
	DialogStateEstablished, DialogStateTerminating, DialogStateTerminated,
}

var dialogTransitions = map[DialogState][]DialogState{
	DialogStateInit:        {DialogStateTrying},
	DialogStateTrying:      {DialogStateRinging, DialogStateEstablished, DialogStateTerminated},
	DialogStateRinging:     {DialogStateEstablished, DialogStateTerminated},
	DialogStateEstablished: {DialogStateTerminating},
	DialogStateTerminating: {DialogStateTerminated},
	DialogStateTerminated:  {},
}

// eventFor имя события fsm для перехода в состояние to.
func eventFor(to DialogState) string {
	return "to_" + to.String()
}

func newDialogFSM() *fsm.FSM {
	var events fsm.Events
	for from, dsts := range dialogTransitions {
		for _, to := range dsts {
			events = append(events, fsm.EventDesc{
				Name: eventFor(to),
				Src:  []string{from.String()},
				Dst:  to.String(),
			})
		}
	}
	return fsm.NewFSM(DialogStateInit.String(), events, fsm.Callbacks{})
}

// NewDialogStateMachine создает новую машину состояний
func NewDialogStateMachine(isUAC bool) *DialogStateMachine {
	dsm := &DialogStateMachine{
		currentState: DialogStateInit,
		isUAC:        isUAC,
		callbacks:    make([]func(DialogState), 0),
		machine:      newDialogFSM(),
	}

	dsm.allowedMethods = map[DialogState][]string{
		DialogStateInit:        {"INVITE"},
		DialogStateTrying:      {"CANCEL", "PRACK", "UPDATE"},
		DialogStateRinging:     {"CANCEL", "PRACK", "UPDATE"},
		DialogStateEstablished: {"BYE", "INVITE", "UPDATE", "INFO", "REFER", "NOTIFY", "MESSAGE", "OPTIONS"},
		DialogStateTerminating: {},
		DialogStateTerminated:  {},
	}

	return dsm
}

// GetState возвращает текущее состояние
func (dsm *DialogStateMachine) GetState() DialogState {
	dsm.mu.RLock()
	defer dsm.mu.RUnlock()
	return dsm.currentState
}

// OnStateChange регистрирует callback для изменения состояния
func (dsm *DialogStateMachine) OnStateChange(callback func(DialogState)) {
	dsm.mu.Lock()
	defer dsm.mu.Unlock()
	dsm.callbacks = append(dsm.callbacks, callback)
}

// transitionLocked выполняет переход, уже держа dsm.mu, и возвращает
// снятые для вызова вне блокировки callbacks. Вызывающий обязан сам
// разблокировать dsm.mu перед вызовом callbacks.
func (dsm *DialogStateMachine) transitionLocked(newState DialogState) ([]func(DialogState), error) {
	dsm.machine.SetState(dsm.currentState.String())
	if err := dsm.machine.Event(context.Background(), eventFor(newState)); err != nil {
		return nil, fmt.Errorf("invalid transition from %s to %s: %w", dsm.currentState, newState, err)
	}
	dsm.currentState = newState
	callbacks := append([]func(DialogState){}, dsm.callbacks...)
	return callbacks, nil
}

// TransitionTo переходит в новое состояние если переход разрешен
func (dsm *DialogStateMachine) TransitionTo(newState DialogState) error {
	dsm.mu.Lock()
	callbacks, err := dsm.transitionLocked(newState)
	dsm.mu.Unlock()
	if err != nil {
		return err
	}

	for _, cb := range callbacks {
		cb(newState)
	}
	return nil
}

// ProcessRequest обрабатывает входящий запрос и обновляет состояние
func (dsm *DialogStateMachine) ProcessRequest(method string, statusCode int) error {
	dsm.mu.Lock()

	var target DialogState
	hasTarget := false

	switch dsm.currentState {
	case DialogStateInit:
		if method == "INVITE" {
			target, hasTarget = DialogStateTrying, true
		}
	case DialogStateTrying, DialogStateRinging:
		if method == "CANCEL" {
			target, hasTarget = DialogStateTerminated, true
		}
	case DialogStateEstablished:
		if method == "BYE" {
			target, hasTarget = DialogStateTerminating, true
		}
	}

	if hasTarget {
		callbacks, err := dsm.transitionLocked(target)
		dsm.mu.Unlock()
		if err != nil {
			return err
		}
		for _, cb := range callbacks {
			cb(target)
		}
		return nil
	}

	allowed := dsm.isMethodAllowed(dsm.currentState, method)
	dsm.mu.Unlock()
	if !allowed {
		return fmt.Errorf("method %s not allowed in state %s", method, dsm.currentState)
	}
	return nil
}

// ProcessResponse обрабатывает ответ и обновляет состояние
func (dsm *DialogStateMachine) ProcessResponse(method string, statusCode int) error {
	dsm.mu.Lock()

	var target DialogState
	hasTarget := false

	switch dsm.currentState {
	case DialogStateTrying:
		if method == "INVITE" {
			switch {
			case statusCode == 180 || statusCode == 183:
				target, hasTarget = DialogStateRinging, true
			case statusCode >= 200 && statusCode < 300:
				target, hasTarget = DialogStateEstablished, true
			case statusCode >= 300:
				target, hasTarget = DialogStateTerminated, true
			}
		}
	case DialogStateRinging:
		if method == "INVITE" && statusCode >= 200 && statusCode < 300 {
			target, hasTarget = DialogStateEstablished, true
		}
	case DialogStateTerminating:
		if method == "BYE" && statusCode >= 200 && statusCode < 300 {
			target, hasTarget = DialogStateTerminated, true
		}
	}

	if !hasTarget {
		dsm.mu.Unlock()
		return nil
	}

	callbacks, err := dsm.transitionLocked(target)
	dsm.mu.Unlock()
	if err != nil {
		return err
	}
	for _, cb := range callbacks {
		cb(target)
	}
	return nil
}

// IsEstablished проверяет установлен ли диалог
func (dsm *DialogStateMachine) IsEstablished() bool {
	dsm.mu.RLock()
	defer dsm.mu.RUnlock()
	return dsm.currentState == DialogStateEstablished
}

// IsTerminated проверяет завершен ли диалог
func (dsm *DialogStateMachine) IsTerminated() bool {
	dsm.mu.RLock()
	defer dsm.mu.RUnlock()
	return dsm.currentState == DialogStateTerminated
}

// CanSendRequest проверяет можно ли отправить запрос с данным методом
func (dsm *DialogStateMachine) CanSendRequest(method string) bool {
	dsm.mu.RLock()
	defer dsm.mu.RUnlock()

	if method == "CANCEL" {
		return dsm.currentState == DialogStateTrying || dsm.currentState == DialogStateRinging
	}

	if method == "ACK" {
		return true
	}

	return dsm.isMethodAllowed(dsm.currentState, method)
}

// isMethodAllowed проверяет разрешен ли метод в данном состоянии. Вызывающий
// должен уже держать dsm.mu (Lock или RLock).
func (dsm *DialogStateMachine) isMethodAllowed(state DialogState, method string) bool {
	if method == "ACK" {
		return true
	}

	for _, m := range dsm.allowedMethods[state] {
		if m == method {
			return true
		}
	}
	return false
}

// Reset сбрасывает машину состояний в начальное состояние
func (dsm *DialogStateMachine) Reset() {
	dsm.mu.Lock()
	defer dsm.mu.Unlock()

	dsm.currentState = DialogStateInit
	dsm.machine = newDialogFSM()
	// Callbacks сохраняем
}
