package dialog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/arzzra/govoip/pkg/sip/builder"
	"github.com/arzzra/govoip/pkg/sip/types"
	"github.com/arzzra/govoip/pkg/transaction"
)

// Dialog реализует IDialog — один SIP диалог согласно RFC 3261 §12.
//
// Диалог объединяет четыре подсистемы, каждая со своей зоной ответственности:
//   - stateMachine отслеживает состояние вызова (Init..Terminated)
//   - sequenceManager проверяет и генерирует CSeq
//   - targetManager хранит текущий target URI и route set
//   - transactionMgr создаёт клиентские транзакции для исходящих запросов (BYE, REFER)
type Dialog struct {
	mu sync.RWMutex

	key       DialogKey
	isUAC     bool
	localURI  types.URI
	remoteURI types.URI

	transactionMgr transaction.TransactionManager
	inviteTx       transaction.Transaction
	byeTx          transaction.Transaction
	referTx        transaction.Transaction

	stateMachine    *DialogStateMachine
	sequenceManager *SequenceManager
	targetManager   *TargetManager

	referSubscriptions map[string]*ReferSubscription

	stateCallbacks []func(DialogState)
	bodyCallbacks  []func(Body)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDialog создает новый диалог.
//
// localURI/remoteURI задают стороны диалога в терминах этого UA: для UAC
// local = инициатор (From), remote = вызываемый (To); для UAS наоборот.
func NewDialog(key DialogKey, isUAC bool, localURI, remoteURI types.URI, txManager transaction.TransactionManager) *Dialog {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dialog{
		key:                key,
		isUAC:              isUAC,
		localURI:           localURI,
		remoteURI:          remoteURI,
		transactionMgr:     txManager,
		stateMachine:       NewDialogStateMachine(isUAC),
		sequenceManager:    NewSequenceManager(GenerateInitialCSeq(), isUAC),
		targetManager:      NewTargetManager(remoteURI, isUAC),
		referSubscriptions: make(map[string]*ReferSubscription),
		ctx:                ctx,
		cancel:             cancel,
	}

	d.stateMachine.OnStateChange(func(state DialogState) {
		d.mu.RLock()
		callbacks := append([]func(DialogState){}, d.stateCallbacks...)
		d.mu.RUnlock()
		for _, cb := range callbacks {
			cb(state)
		}
	})

	return d
}

// Key возвращает ключ диалога
func (d *Dialog) Key() DialogKey {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.key
}

// LocalTag возвращает локальный тег
func (d *Dialog) LocalTag() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.key.LocalTag
}

// RemoteTag возвращает удаленный тег
func (d *Dialog) RemoteTag() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.key.RemoteTag
}

// State возвращает текущее состояние диалога
func (d *Dialog) State() DialogState {
	return d.stateMachine.GetState()
}

// SetInviteTransaction привязывает INVITE транзакцию к диалогу (UAS)
func (d *Dialog) SetInviteTransaction(tx transaction.Transaction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inviteTx = tx
}

// Accept принимает входящий INVITE, отправляя 200 OK
func (d *Dialog) Accept(ctx context.Context, opts ...ResponseOpt) error {
	d.mu.RLock()
	tx := d.inviteTx
	localURI := d.localURI
	localTag := d.key.LocalTag
	d.mu.RUnlock()

	if tx == nil {
		return fmt.Errorf("dialog: no INVITE transaction to accept")
	}

	req := tx.Request()
	respBuilder := builder.CreateResponse(req, 200, "OK")
	respBuilder.SetHeader("To", fmt.Sprintf("<%s>;tag=%s", localURI.String(), localTag))
	respBuilder.SetContact(types.NewAddress("", localURI))

	msg, err := respBuilder.Build()
	if err != nil {
		return fmt.Errorf("dialog: failed to build 200 OK: %w", err)
	}

	resp, ok := msg.(*types.Response)
	if !ok {
		return fmt.Errorf("dialog: unexpected response type")
	}
	for _, opt := range opts {
		opt(resp)
	}

	if err := tx.SendResponse(resp); err != nil {
		return fmt.Errorf("dialog: failed to send 200 OK: %w", err)
	}

	return d.stateMachine.ProcessResponse(types.MethodINVITE, 200)
}

// Reject отклоняет входящий INVITE с заданным кодом
func (d *Dialog) Reject(ctx context.Context, code int, reason string) error {
	d.mu.RLock()
	tx := d.inviteTx
	d.mu.RUnlock()

	if tx == nil {
		return fmt.Errorf("dialog: no INVITE transaction to reject")
	}

	req := tx.Request()
	respBuilder := builder.CreateResponse(req, code, reason)
	msg, err := respBuilder.Build()
	if err != nil {
		return fmt.Errorf("dialog: failed to build response: %w", err)
	}

	if err := tx.SendResponse(msg); err != nil {
		return fmt.Errorf("dialog: failed to send response: %w", err)
	}

	return d.stateMachine.ProcessResponse(types.MethodINVITE, code)
}

// Bye завершает установленный диалог, отправляя BYE
func (d *Dialog) Bye(ctx context.Context, reason string) error {
	if d.stateMachine.GetState() != DialogStateEstablished {
		return fmt.Errorf("dialog: must be Established to send BYE, current state: %s", d.stateMachine.GetState())
	}

	bye := d.createRequest(types.MethodBYE)
	if reason != "" {
		bye.SetHeader("Reason", reason)
	}

	tx, err := d.transactionMgr.CreateClientTransaction(bye)
	if err != nil {
		return fmt.Errorf("dialog: failed to create BYE transaction: %w", err)
	}

	if err := d.stateMachine.ProcessRequest(types.MethodBYE, 0); err != nil {
		return err
	}

	d.mu.Lock()
	d.byeTx = tx
	d.mu.Unlock()

	if err := tx.SendRequest(bye); err != nil {
		return fmt.Errorf("dialog: failed to send BYE: %w", err)
	}

	go d.waitByeCompletion(tx)

	return nil
}

// waitByeCompletion переводит диалог в Terminated, когда BYE транзакция
// завершается. Ответ BYE доставляется асинхронно через транзакцию, не через
// прямой callback, поэтому ждём закрытия её контекста.
func (d *Dialog) waitByeCompletion(tx transaction.Transaction) {
	select {
	case <-tx.Context().Done():
		_ = d.stateMachine.TransitionTo(DialogStateTerminated)
	case <-d.ctx.Done():
	}
}

// SendRefer реализует IDialog.SendRefer, адаптируя строковый target к Refer()
func (d *Dialog) SendRefer(ctx context.Context, targetURI string, opts *ReferOpts) error {
	target, err := types.ParseURI(targetURI)
	if err != nil {
		return fmt.Errorf("dialog: invalid Refer-To target: %w", err)
	}

	var o ReferOpts
	if opts != nil {
		o = *opts
	}
	return d.Refer(ctx, target, o)
}

// OnStateChange регистрирует callback для изменения состояния диалога
func (d *Dialog) OnStateChange(fn func(DialogState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateCallbacks = append(d.stateCallbacks, fn)
}

// OnBody регистрирует callback для получения тела входящих сообщений
func (d *Dialog) OnBody(fn func(Body)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bodyCallbacks = append(d.bodyCallbacks, fn)
}

func (d *Dialog) notifyBody(body Body) {
	d.mu.RLock()
	callbacks := append([]func(Body){}, d.bodyCallbacks...)
	d.mu.RUnlock()
	for _, cb := range callbacks {
		cb(body)
	}
}

// ProcessRequest обрабатывает входящий in-dialog запрос
func (d *Dialog) ProcessRequest(req types.Message) error {
	method := req.Method()

	if cseqHeader := req.GetHeader("CSeq"); cseqHeader != "" {
		if cseq, _, err := ParseCSeq(cseqHeader); err == nil {
			d.sequenceManager.ValidateRemoteCSeq(cseq, method)
		}
	}

	if err := d.targetManager.UpdateFromRequest(req); err != nil {
		return err
	}

	if err := d.stateMachine.ProcessRequest(method, 0); err != nil {
		return err
	}

	if body := req.Body(); len(body) > 0 {
		d.notifyBody(NewSimpleBody(req.GetHeader("Content-Type"), body))
	}

	return nil
}

// ProcessResponse обрабатывает входящий ответ на запрос в диалоге
func (d *Dialog) ProcessResponse(resp types.Message, method string) error {
	if err := d.targetManager.UpdateFromResponse(resp, method); err != nil {
		return err
	}

	if err := d.stateMachine.ProcessResponse(method, resp.StatusCode()); err != nil {
		return err
	}

	if body := resp.Body(); len(body) > 0 {
		d.notifyBody(NewSimpleBody(resp.GetHeader("Content-Type"), body))
	}

	return nil
}

// createRequest строит новый in-dialog запрос с From/To/Call-ID/CSeq/Via/Contact/Route
func (d *Dialog) createRequest(method string) types.Message {
	d.mu.RLock()
	key := d.key
	localURI := d.localURI
	remoteURI := d.remoteURI
	d.mu.RUnlock()

	target := d.targetManager.GetTargetURI()
	if target == nil {
		target = remoteURI
	}

	req := types.NewRequest(method, target)

	fromAddr := types.NewAddress("", localURI)
	fromAddr.SetParameter("tag", key.LocalTag)
	req.SetHeader("From", fromAddr.String())

	toAddr := types.NewAddress("", remoteURI)
	if key.RemoteTag != "" {
		toAddr.SetParameter("tag", key.RemoteTag)
	}
	req.SetHeader("To", toAddr.String())

	req.SetHeader("Call-ID", key.CallID)
	req.SetHeader("CSeq", FormatCSeq(d.sequenceManager.NextLocalCSeq(), method))
	req.SetHeader("Via", fmt.Sprintf("SIP/2.0/UDP %s;branch=%s", localURI.Host(), generateBranch()))

	req.SetHeader("Contact", types.NewAddress("", localURI).String())

	for _, route := range d.targetManager.BuildRouteHeaders() {
		req.AddHeader("Route", route)
	}

	return req
}

// generateBranch генерирует Via branch с магическим префиксом z9hG4bK (RFC 3261 §8.1.1.7)
func generateBranch() string {
	return "z9hG4bK" + uuid.NewString()[:16]
}

// Close закрывает диалог без отправки BYE, освобождая связанные ресурсы
func (d *Dialog) Close() error {
	d.cancel()
	return nil
}
