// Package testutil provides canned delegate behaviors and identity helpers
// for tests.
package testutil

import (
	"encoding/binary"

	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host"
)

// Address returns a deterministic test address filled with b.
func Address(b byte) shell.Address {
	var raw [20]byte
	for i := range raw {
		raw[i] = b
	}
	addr, _ := shell.AddressFromBytes(raw[:])
	return addr
}

// Salt returns a deterministic test salt filled with b.
func Salt(b byte) shell.Salt {
	var s shell.Salt
	for i := range s {
		s[i] = b
	}
	return s
}

// Echo returns a behavior that succeeds with its payload unchanged.
func Echo() host.Behavior {
	return host.BehaviorFunc(func(_ *host.ExecContext, payload []byte) ([]byte, error) {
		return payload, nil
	})
}

// Failing returns a behavior that always fails with exactly the given
// failure payload.
func Failing(payload []byte) host.Behavior {
	return host.BehaviorFunc(func(_ *host.ExecContext, _ []byte) ([]byte, error) {
		return nil, shell.NewDelegateError(payload)
	})
}

// Reporter returns a behavior that reports its execution context: the return
// data is EncodeReport(ctx.Self, payload, ctx.Value). Useful for asserting
// that forwarded logic runs under the shell's own identity.
func Reporter() host.Behavior {
	return host.BehaviorFunc(func(ctx *host.ExecContext, payload []byte) ([]byte, error) {
		return EncodeReport(ctx.Self, payload, ctx.Value), nil
	})
}

// EncodeReport is the wire form produced by Reporter: self address, value as
// 8 big-endian bytes, then the payload verbatim.
func EncodeReport(self shell.Address, payload []byte, value int64) []byte {
	out := make([]byte, 0, 20+8+len(payload))
	out = append(out, self.Bytes()...)
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(value))
	out = append(out, v[:]...)
	return append(out, payload...)
}

// StorageWriter returns a behavior that writes its payload to the given key
// in the execution context's state and succeeds with empty return. Combine
// with Failing via FailAfterWrite to test rollback.
func StorageWriter(key string) host.Behavior {
	return host.BehaviorFunc(func(ctx *host.ExecContext, payload []byte) ([]byte, error) {
		ctx.Store(key, payload)
		return nil, nil
	})
}

// FailAfterWrite returns a behavior that writes its payload to key and then
// fails with the given failure payload, for testing that state effects roll
// back while the failure surfaces.
func FailAfterWrite(key string, failure []byte) host.Behavior {
	return host.BehaviorFunc(func(ctx *host.ExecContext, payload []byte) ([]byte, error) {
		ctx.Store(key, payload)
		return nil, shell.NewDelegateError(failure)
	})
}
