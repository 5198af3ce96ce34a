package client

import (
	"context"

	"github.com/arzzra/govoip/pkg/transaction"
)

// ClientStateMachine описывает конечный автомат клиентской транзакции
type ClientStateMachine struct {
	// INVITE Client Transaction States (RFC 3261 Figure 5)
	// Calling -> Proceeding -> Completed -> Terminated
	// Calling -> Proceeding -> Terminated (для 2xx)
	// Calling -> Completed -> Terminated
	// Calling -> Terminated (timeout)

	// Non-INVITE Client Transaction States (RFC 3261 Figure 6)
	// Trying -> Proceeding -> Completed -> Terminated
	// Trying -> Completed -> Terminated
	// Trying -> Terminated (timeout)
}

// ValidateStateTransition проверяет допустимость перехода состояний через
// ту же looplab/fsm машину, что драйвит BaseTransaction.changeState
// (pkg/transaction/fsm.go) — строит одноразовый экземпляр, ресинхронизирует
// его на from и пробует событие to.
func ValidateStateTransition(from, to transaction.TransactionState, isInvite bool) bool {
	if isInvite {
		return validateInviteStateTransition(from, to)
	}
	return validateNonInviteStateTransition(from, to)
}

// validateInviteStateTransition проверяет переходы для INVITE транзакций
// (RFC 3261 Figure 5).
func validateInviteStateTransition(from, to transaction.TransactionState) bool {
	machine := transaction.NewClientFSM(true)
	machine.SetState(from.String())
	return machine.Event(context.Background(), transaction.EventFor(to)) == nil
}

// validateNonInviteStateTransition проверяет переходы для non-INVITE
// транзакций (RFC 3261 Figure 6).
func validateNonInviteStateTransition(from, to transaction.TransactionState) bool {
	machine := transaction.NewClientFSM(false)
	machine.SetState(from.String())
	return machine.Event(context.Background(), transaction.EventFor(to)) == nil
}

// GetTimersForState возвращает список активных таймеров для состояния
func GetTimersForState(state transaction.TransactionState, isInvite bool, reliable bool) []transaction.TimerID {
	if isInvite {
		return getInviteTimers(state, reliable)
	}
	return getNonInviteTimers(state, reliable)
}

// getInviteTimers возвращает таймеры для INVITE транзакции
func getInviteTimers(state transaction.TransactionState, reliable bool) []transaction.TimerID {
	switch state {
	case transaction.TransactionCalling:
		if reliable {
			return []transaction.TimerID{transaction.TimerB}
		}
		return []transaction.TimerID{transaction.TimerA, transaction.TimerB}
		
	case transaction.TransactionProceeding:
		return []transaction.TimerID{transaction.TimerB}
		
	case transaction.TransactionCompleted:
		if reliable {
			return []transaction.TimerID{}
		}
		return []transaction.TimerID{transaction.TimerD}
		
	default:
		return []transaction.TimerID{}
	}
}

// getNonInviteTimers возвращает таймеры для non-INVITE транзакции
func getNonInviteTimers(state transaction.TransactionState, reliable bool) []transaction.TimerID {
	switch state {
	case transaction.TransactionTrying:
		if reliable {
			return []transaction.TimerID{transaction.TimerF}
		}
		return []transaction.TimerID{transaction.TimerE, transaction.TimerF}
		
	case transaction.TransactionProceeding:
		if reliable {
			return []transaction.TimerID{transaction.TimerF}
		}
		return []transaction.TimerID{transaction.TimerE, transaction.TimerF}
		
	case transaction.TransactionCompleted:
		if reliable {
			return []transaction.TimerID{}
		}
		return []transaction.TimerID{transaction.TimerK}
		
	default:
		return []transaction.TimerID{}
	}
}