package session

import (
	"context"
	"testing"

	"github.com/arzzra/govoip/pkg/dialog"
	"github.com/arzzra/govoip/pkg/media"
	"github.com/arzzra/govoip/pkg/metrics"
	"github.com/arzzra/govoip/pkg/sip/types"
)

// fakeDialog — минимальная реализация dialog.IDialog для модульных тестов
// координатора, без реального SIP стека.
type fakeDialog struct {
	state        dialog.DialogState
	stateChanges []func(dialog.DialogState)
	acceptedBody []byte
	bye          bool
}

func (f *fakeDialog) Key() dialog.DialogKey     { return dialog.DialogKey{CallID: "test-call"} }
func (f *fakeDialog) State() dialog.DialogState { return f.state }
func (f *fakeDialog) LocalTag() string          { return "local" }
func (f *fakeDialog) RemoteTag() string         { return "remote" }

func (f *fakeDialog) Accept(ctx context.Context, opts ...dialog.ResponseOpt) error {
	resp := types.NewResponse(200, "OK")
	for _, opt := range opts {
		opt(resp)
	}
	f.acceptedBody = resp.Body()
	f.setState(dialog.DialogStateEstablished)
	return nil
}

func (f *fakeDialog) Reject(ctx context.Context, code int, reason string) error {
	f.setState(dialog.DialogStateTerminated)
	return nil
}

func (f *fakeDialog) Bye(ctx context.Context, reason string) error {
	f.bye = true
	f.setState(dialog.DialogStateTerminated)
	return nil
}

func (f *fakeDialog) SendRefer(ctx context.Context, targetURI string, opts *dialog.ReferOpts) error {
	return nil
}

func (f *fakeDialog) WaitRefer(ctx context.Context) (*dialog.ReferSubscription, error) {
	return nil, nil
}

func (f *fakeDialog) OnStateChange(fn func(dialog.DialogState)) {
	f.stateChanges = append(f.stateChanges, fn)
}

func (f *fakeDialog) OnBody(fn func(dialog.Body)) {}

func (f *fakeDialog) Close() error {
	f.setState(dialog.DialogStateTerminated)
	return nil
}

func (f *fakeDialog) setState(s dialog.DialogState) {
	f.state = s
	for _, fn := range f.stateChanges {
		fn(s)
	}
}

// fakeStack — минимальная реализация dialog.IStack, возвращающая один и тот
// же fakeDialog из NewInvite.
type fakeStack struct {
	lastInviteBody []byte
	dialog         *fakeDialog
}

func (s *fakeStack) Start(ctx context.Context) error    { return nil }
func (s *fakeStack) Shutdown(ctx context.Context) error { return nil }

func (s *fakeStack) NewInvite(ctx context.Context, target dialog.URI, opts dialog.InviteOpts) (dialog.IDialog, error) {
	req := types.NewRequest("INVITE", target)
	opts(req)
	s.lastInviteBody = req.Body()
	s.dialog = &fakeDialog{state: dialog.DialogStateTrying}
	return s.dialog, nil
}

func (s *fakeStack) DialogByKey(key dialog.DialogKey) (dialog.IDialog, bool) { return nil, false }
func (s *fakeStack) OnIncomingDialog(func(dialog.IDialog))                   {}
func (s *fakeStack) OnRequest(method string, h dialog.RequestHandler)        {}

func testTarget() types.URI {
	return types.NewSipURI("bob", "example.com")
}

func TestNewOutgoingCallSendsSDPOfferInInvite(t *testing.T) {
	stack := &fakeStack{}
	cfg := Config{LocalIP: "127.0.0.1", RTPPort: 0}

	call, err := NewOutgoingCall(context.Background(), stack, testTarget(), cfg)
	if err != nil {
		t.Fatalf("NewOutgoingCall: %v", err)
	}
	defer call.Media().Stop()

	if len(stack.lastInviteBody) == 0 {
		t.Fatal("expected INVITE body to contain SDP offer")
	}
}

func TestCallStartsMediaOnEstablished(t *testing.T) {
	stack := &fakeStack{}
	cfg := Config{LocalIP: "127.0.0.1", RTPPort: 0}

	call, err := NewOutgoingCall(context.Background(), stack, testTarget(), cfg)
	if err != nil {
		t.Fatalf("NewOutgoingCall: %v", err)
	}
	defer call.Media().Stop()

	stack.dialog.setState(dialog.DialogStateEstablished)
	if got := call.Media().GetState(); got != media.MediaStateActive {
		t.Fatalf("GetState() = %v, want MediaStateActive after dialog reaches Established", got)
	}
}

func TestCallRecordsMetricsOnTermination(t *testing.T) {
	reg := metrics.New(nil)
	stack := &fakeStack{}
	cfg := Config{LocalIP: "127.0.0.1", RTPPort: 0, Metrics: reg}

	call, err := NewOutgoingCall(context.Background(), stack, testTarget(), cfg)
	if err != nil {
		t.Fatalf("NewOutgoingCall: %v", err)
	}

	if err := call.Hangup(context.Background(), "normal"); err != nil {
		t.Fatalf("Hangup: %v", err)
	}
	if !stack.dialog.bye {
		t.Fatal("expected Hangup to send BYE for an established dialog state transition")
	}
}

func TestHandleChallengeRequiresAuthenticator(t *testing.T) {
	stack := &fakeStack{}
	cfg := Config{LocalIP: "127.0.0.1", RTPPort: 0}
	call, err := NewOutgoingCall(context.Background(), stack, testTarget(), cfg)
	if err != nil {
		t.Fatalf("NewOutgoingCall: %v", err)
	}
	defer call.Media().Stop()

	_, err = call.HandleChallenge(&dialog.Response{}, &dialog.Request{}, "INVITE", "sip:test@example.com")
	if err == nil {
		t.Fatal("expected error when no Username configured")
	}
}
