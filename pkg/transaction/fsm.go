package transaction

import "github.com/looplab/fsm"

// eventFor возвращает имя fsm-события для перехода в состояние to, тем же
// способом, что и DialogStateMachine в pkg/dialog/state_machine.go.
func eventFor(to TransactionState) string {
	return "to_" + to.String()
}

// withForcedTerminate добавляет TransactionTerminated к каждому непустому
// списку назначений, если его там еще нет: транзакция должна быть
// принудительно завершаема из любого нетерминального состояния (shutdown,
// транспортная ошибка, вызывающий код явно зовет Terminate()), даже если
// RFC 3261 не рисует такую стрелку на конкретной диаграмме состояний.
func withForcedTerminate(transitions map[TransactionState][]TransactionState) map[TransactionState][]TransactionState {
	for from, dsts := range transitions {
		if from == TransactionTerminated {
			continue
		}
		hasTerminated := false
		for _, d := range dsts {
			if d == TransactionTerminated {
				hasTerminated = true
				break
			}
		}
		if !hasTerminated {
			transitions[from] = append(dsts, TransactionTerminated)
		}
	}
	return transitions
}

// clientInviteTransitions — ICT, RFC 3261 Figure 5.
var clientInviteTransitions = withForcedTerminate(map[TransactionState][]TransactionState{
	TransactionCalling:    {TransactionProceeding, TransactionCompleted, TransactionTerminated},
	TransactionProceeding: {TransactionCompleted, TransactionTerminated},
	TransactionCompleted:  {TransactionTerminated},
	TransactionTerminated: {},
})

// clientNonInviteTransitions — NICT, RFC 3261 Figure 6.
var clientNonInviteTransitions = withForcedTerminate(map[TransactionState][]TransactionState{
	TransactionTrying:     {TransactionProceeding, TransactionCompleted, TransactionTerminated},
	TransactionProceeding: {TransactionCompleted, TransactionTerminated},
	TransactionCompleted:  {TransactionTerminated},
	TransactionTerminated: {},
})

// serverInviteTransitions — IST, RFC 3261 Figure 7.
var serverInviteTransitions = withForcedTerminate(map[TransactionState][]TransactionState{
	TransactionProceeding: {TransactionCompleted, TransactionTerminated},
	TransactionCompleted:  {TransactionConfirmed, TransactionTerminated},
	TransactionConfirmed:  {TransactionTerminated},
	TransactionTerminated: {},
})

// serverNonInviteTransitions — NIST, RFC 3261 Figure 8. Trying/Proceeding
// получают принудительный переход в Terminated сверх диаграммы (см.
// withForcedTerminate) — без него вызов Terminate() до отправки финального
// ответа (shutdown, ошибка транспорта) не смог бы провести транзакцию в
// Terminated вообще.
var serverNonInviteTransitions = withForcedTerminate(map[TransactionState][]TransactionState{
	TransactionTrying:     {TransactionProceeding, TransactionCompleted},
	TransactionProceeding: {TransactionCompleted},
	TransactionCompleted:  {TransactionTerminated},
	TransactionTerminated: {},
})

func buildFSM(initial TransactionState, transitions map[TransactionState][]TransactionState) *fsm.FSM {
	var events fsm.Events
	for from, dsts := range transitions {
		for _, to := range dsts {
			events = append(events, fsm.EventDesc{
				Name: eventFor(to),
				Src:  []string{from.String()},
				Dst:  to.String(),
			})
		}
	}
	return fsm.NewFSM(initial.String(), events, fsm.Callbacks{})
}

// NewClientFSM строит looplab/fsm машину для клиентской транзакции согласно
// RFC 3261 Figure 5 (isInvite) или Figure 6.
func NewClientFSM(isInvite bool) *fsm.FSM {
	if isInvite {
		return buildFSM(TransactionCalling, clientInviteTransitions)
	}
	return buildFSM(TransactionTrying, clientNonInviteTransitions)
}

// NewServerFSM строит looplab/fsm машину для серверной транзакции согласно
// RFC 3261 Figure 7 (isInvite) или Figure 8.
func NewServerFSM(isInvite bool) *fsm.FSM {
	if isInvite {
		return buildFSM(TransactionProceeding, serverInviteTransitions)
	}
	return buildFSM(TransactionTrying, serverNonInviteTransitions)
}

// EventFor экспортирует имя fsm-события для перехода в состояние to —
// нужно вызывающим пакетам (client, server), которые держат *fsm.FSM как
// поле BaseTransaction и ресинхронизируют его перед каждым Event().
func EventFor(to TransactionState) string {
	return eventFor(to)
}
