// Package derive computes content-addressed identifiers for would-be shell
// instances, so an address can be predicted before anything is deployed.
package derive

import (
	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
)

// prefix is the fixed leading byte of the derivation preimage. It keeps
// shell-address preimages disjoint from every other hash domain the host
// environment uses.
const prefix byte = 0xff

// Predict computes the address a shell deployed by controller with the given
// salt and image hash will occupy. Pure and total: identical inputs always
// produce identical addresses, and any single-byte change to an input yields
// an unrelated address.
func Predict(controller shell.Address, salt shell.Salt, imageHash shell.Hash) shell.Address {
	buf := make([]byte, 0, 1+len(controller.Bytes())+shell.SaltSize+len(imageHash.Bytes()))
	buf = append(buf, prefix)
	buf = append(buf, controller.Bytes()...)
	buf = append(buf, salt.Bytes()...)
	buf = append(buf, imageHash.Bytes()...)

	sum := shell.Keccak256(buf).Bytes()
	addr, _ := shell.AddressFromBytes(sum[len(sum)-20:])
	return addr
}

// PredictShell is Predict fixed to the protocol's own executable image, the
// common case where the caller predicts the address of a shell it is about
// to deploy itself.
func PredictShell(controller shell.Address, salt shell.Salt) shell.Address {
	return Predict(controller, salt, shell.ImageHash())
}
