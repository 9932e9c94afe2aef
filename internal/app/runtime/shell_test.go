package runtime

import (
	"bytes"
	"errors"
	"testing"

	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host"
	"github.com/R3E-Network/shell_layer/pkg/testutil"
)

// recordingInvoker captures the single forward an invocation may perform.
type recordingInvoker struct {
	calls    int
	ctx      *host.ExecContext
	delegate shell.Address
	payload  []byte
	ret      []byte
	err      error
}

func (r *recordingInvoker) InvokeInPlace(ctx *host.ExecContext, delegate shell.Address, payload []byte) ([]byte, error) {
	r.calls++
	r.ctx = ctx
	r.delegate = delegate
	r.payload = append([]byte(nil), payload...)
	return r.ret, r.err
}

type nopState struct{}

func (nopState) Load(shell.Address, string) ([]byte, bool) { return nil, false }
func (nopState) Store(shell.Address, string, []byte)       {}
func (nopState) Balance(shell.Address) int64               { return 0 }

func newTestInstance() *shell.Instance {
	return shell.NewInstance(testutil.Address(0x0a), testutil.Address(0x0c))
}

func TestRunShortInputIsNoOp(t *testing.T) {
	inst := newTestInstance()
	inv := &recordingInvoker{}

	for _, input := range [][]byte{nil, {}, make([]byte, 31)} {
		res := Run(inst, Invocation{Caller: inst.Controller(), Input: input}, inv, nopState{})
		if res.Outcome != OutcomeNoOp {
			t.Fatalf("outcome %s for %d-byte input, want noop", res.Outcome, len(input))
		}
		if len(res.Return) != 0 || res.Err != nil {
			t.Fatalf("noop must return empty success, got %x / %v", res.Return, res.Err)
		}
	}
	if inv.calls != 0 {
		t.Fatalf("invoker called %d times on noop paths", inv.calls)
	}
}

func TestRunBadPaddingIsNoOp(t *testing.T) {
	inst := newTestInstance()
	inv := &recordingInvoker{}

	input := shell.Encode(testutil.Address(0xdd), []byte("payload"))
	input[0] = 0x01

	res := Run(inst, Invocation{Caller: inst.Controller(), Input: input}, inv, nopState{})
	if res.Outcome != OutcomeNoOp {
		t.Fatalf("outcome %s, want noop", res.Outcome)
	}
	if inv.calls != 0 {
		t.Fatal("invoker called despite malformed padding")
	}
}

func TestRunUnauthorizedCallerIsNoOp(t *testing.T) {
	inst := newTestInstance()
	inv := &recordingInvoker{}

	input := shell.Encode(testutil.Address(0xdd), []byte("payload"))
	stranger := testutil.Address(0xee)

	res := Run(inst, Invocation{Caller: stranger, Input: input}, inv, nopState{})
	if res.Outcome != OutcomeNoOp {
		t.Fatalf("outcome %s, want noop", res.Outcome)
	}
	if inv.calls != 0 {
		t.Fatal("invoker called for unauthorized caller")
	}
}

func TestRunControllerForwards(t *testing.T) {
	inst := newTestInstance()
	delegate := testutil.Address(0xdd)
	payload := []byte("the payload")
	inv := &recordingInvoker{ret: []byte("delegate result")}

	res := Run(inst, Invocation{
		Caller: inst.Controller(),
		Input:  shell.Encode(delegate, payload),
		Value:  77,
	}, inv, nopState{})

	if res.Outcome != OutcomeForward {
		t.Fatalf("outcome %s, want forward", res.Outcome)
	}
	if !bytes.Equal(res.Return, []byte("delegate result")) {
		t.Fatalf("return %q not passed through", res.Return)
	}
	if inv.calls != 1 {
		t.Fatalf("invoker called %d times", inv.calls)
	}
	if inv.delegate != delegate {
		t.Fatalf("delegate %s, want %s", inv.delegate, delegate)
	}
	if !bytes.Equal(inv.payload, payload) {
		t.Fatalf("payload %q, want %q", inv.payload, payload)
	}

	// The execution context is the instance's own, not the delegate's.
	if inv.ctx.Self != inst.Address() {
		t.Fatalf("ctx.Self = %s, want shell address %s", inv.ctx.Self, inst.Address())
	}
	if inv.ctx.Caller != inst.Controller() || inv.ctx.Value != 77 {
		t.Fatalf("context not propagated: caller %s value %d", inv.ctx.Caller, inv.ctx.Value)
	}
}

func TestRunForwardFailurePassesErrorThrough(t *testing.T) {
	inst := newTestInstance()
	failure := shell.NewDelegateError([]byte{0xde, 0xad, 0xbe, 0xef})
	inv := &recordingInvoker{err: failure}

	res := Run(inst, Invocation{
		Caller: inst.Controller(),
		Input:  shell.Encode(testutil.Address(0xdd), nil),
	}, inv, nopState{})

	if res.Outcome != OutcomeForwardFailed {
		t.Fatalf("outcome %s, want forward_failed", res.Outcome)
	}
	var derr *shell.DelegateError
	if !errors.As(res.Err, &derr) {
		t.Fatalf("error %T is not a DelegateError", res.Err)
	}
	if !bytes.Equal(derr.Payload, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("failure payload altered: %x", derr.Payload)
	}
	if len(res.Return) != 0 {
		t.Fatalf("failed forward must not return data, got %x", res.Return)
	}
}
