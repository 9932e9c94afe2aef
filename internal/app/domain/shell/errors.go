package shell

import (
	"encoding/hex"
	"errors"
)

var (
	// ErrDeploymentFailed means the host environment refused to instantiate
	// a shell. Not retried automatically.
	ErrDeploymentFailed = errors.New("shell deployment failed")

	// ErrSaltAlreadyUsed means the deterministic deployment target is
	// already occupied. The caller picks a different salt or accepts the
	// existing instance.
	ErrSaltAlreadyUsed = errors.New("deterministic deployment address already occupied")

	// ErrAddressOccupied is the host-level refusal to place code at an
	// address that already carries some.
	ErrAddressOccupied = errors.New("address already occupied")
)

// DelegateError is a forwarded delegate's own failure. The shell surfaces it
// untouched: the payload is the delegate's raw failure bytes, never wrapped
// or summarized, so callers cannot distinguish the shell's failure from a
// direct failure of the delegate.
type DelegateError struct {
	Payload []byte
}

func (e *DelegateError) Error() string {
	if len(e.Payload) == 0 {
		return "delegate execution failed"
	}
	return "delegate execution failed: 0x" + hex.EncodeToString(e.Payload)
}

// NewDelegateError wraps raw failure bytes, copying them so later mutation of
// the source cannot alter the surfaced payload.
func NewDelegateError(payload []byte) *DelegateError {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return &DelegateError{Payload: cp}
}
