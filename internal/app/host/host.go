// Package host declares the collaborator interfaces the shell protocol
// expects from its execution environment: code instantiation, caller/identity
// context, and in-place behavior invocation. The protocol core only decides
// what to instantiate, where, and whether to forward; everything here is
// supplied by the environment (see host/memory for the devnet implementation).
package host

import (
	"context"

	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
)

// Environment instantiates executable code. InstantiateAt must be an atomic
// check-and-create: it fails with shell.ErrAddressOccupied when the target
// address already carries code, and never partially installs.
type Environment interface {
	Instantiate(ctx context.Context, image []byte, controller shell.Address) (shell.Address, error)
	InstantiateAt(ctx context.Context, image []byte, controller shell.Address, addr shell.Address) (shell.Address, error)
}

// StateAccess exposes the mutable chain state a behavior may touch during an
// invocation. Implementations are only valid for the duration of the
// invocation that handed them out; the environment rolls every write back if
// the invocation fails.
type StateAccess interface {
	Load(owner shell.Address, key string) ([]byte, bool)
	Store(owner shell.Address, key string, value []byte)
	Balance(addr shell.Address) int64
}

// ExecContext is the capability object a behavior executes against. Self is
// the state/identity context owner: when a shell forwards, Self stays the
// shell's own address while the behavior comes from the delegate, which is
// exactly the in-place substitution the protocol requires.
type ExecContext struct {
	Self   shell.Address
	Caller shell.Address
	Value  int64
	State  StateAccess
}

// Load reads a storage slot in Self's context.
func (c *ExecContext) Load(key string) ([]byte, bool) {
	return c.State.Load(c.Self, key)
}

// Store writes a storage slot in Self's context.
func (c *ExecContext) Store(key string, value []byte) {
	c.State.Store(c.Self, key, value)
}

// Behavior is the logic installed at an address. A failing behavior returns
// an error; if the error is a *shell.DelegateError its payload travels to the
// caller byte-for-byte.
type Behavior interface {
	Invoke(ctx *ExecContext, payload []byte) ([]byte, error)
}

// BehaviorFunc adapts a function to the Behavior interface.
type BehaviorFunc func(ctx *ExecContext, payload []byte) ([]byte, error)

// Invoke implements Behavior.
func (f BehaviorFunc) Invoke(ctx *ExecContext, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}
