// Package runtime implements the per-invocation shell state machine.
//
// The machine is Start -> {NoOp, Forward} -> Return,
// re-evaluated from scratch on every call. The default is an inert account:
// value is accepted and nothing else happens. Only the bound controller,
// presenting input whose leading 32-byte word is a strictly zero-padded
// delegate address, triggers forwarding.
package runtime

import (
	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host"
)

// Outcome labels the branch an invocation took.
type Outcome string

const (
	OutcomeNoOp          Outcome = "noop"
	OutcomeForward       Outcome = "forward"
	OutcomeForwardFailed Outcome = "forward_failed"
)

// Invocation is one call into a shell instance: the environment-supplied
// caller identity, the raw input bytes, and any attached value. Input is
// interpreted fresh per invocation and never persisted.
type Invocation struct {
	Caller shell.Address
	Input  []byte
	Value  int64
}

// Result is what an invocation returns. Err is nil unless the outcome is
// OutcomeForwardFailed, in which case it carries the delegate's failure
// verbatim and Return is empty.
type Result struct {
	Outcome Outcome
	Return  []byte
	Err     error
}

// Invoker runs a delegate's behavior inside the supplied execution context.
// The environment provides it; the shell never changes the acting identity,
// it only substitutes the behavior source.
type Invoker interface {
	InvokeInPlace(ctx *host.ExecContext, delegate shell.Address, payload []byte) ([]byte, error)
}

// Run evaluates one invocation of inst. The transition rules are ordered and
// short-circuiting:
//
//  1. input shorter than one word -> NoOp
//  2. leading word not a zero-padded address -> NoOp
//  3. caller is not the bound controller -> NoOp
//  4. otherwise Forward: execute payload against the delegate's behavior in
//     the instance's own state context, passing success or failure through
//     unchanged.
//
// Short, malformed, or unauthorized input is not an error: it is the defined
// no-op path, indistinguishable from an intentional plain value transfer.
func Run(inst *shell.Instance, inv Invocation, invoker Invoker, state host.StateAccess) Result {
	if len(inv.Input) < shell.WordSize {
		return Result{Outcome: OutcomeNoOp}
	}

	delegate, payload, ok := shell.Decode(inv.Input)
	if !ok {
		return Result{Outcome: OutcomeNoOp}
	}

	if inv.Caller != inst.Controller() {
		return Result{Outcome: OutcomeNoOp}
	}

	execCtx := &host.ExecContext{
		Self:   inst.Address(),
		Caller: inv.Caller,
		Value:  inv.Value,
		State:  state,
	}
	ret, err := invoker.InvokeInPlace(execCtx, delegate, payload)
	if err != nil {
		return Result{Outcome: OutcomeForwardFailed, Err: err}
	}
	return Result{Outcome: OutcomeForward, Return: ret}
}
