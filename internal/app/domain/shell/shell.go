// Package shell defines the core domain types for the delegating-shell
// protocol: fixed-width addresses and hashes, the deterministic-deployment
// salt, the immutable shell executable image, and the delegation calldata
// codec. Everything here is pure data; execution lives in the host and
// runtime packages.
package shell

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"golang.org/x/crypto/sha3"
)

// Address is a 160-bit account identifier, rendered big-endian with a 0x
// prefix.
type Address util.Uint160

// Hash is a 256-bit Keccak digest.
type Hash util.Uint256

// SaltSize is the fixed width of a deterministic-deployment salt.
const SaltSize = 32

// Salt influences the derived address of a deterministic deployment. It is
// consumed at creation time and never stored.
type Salt [SaltSize]byte

// Bytes returns the big-endian byte form of the address.
func (a Address) Bytes() []byte {
	return util.Uint160(a).BytesBE()
}

// String renders the address as 0x-prefixed hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a.Bytes())
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress parses a 0x-prefixed or bare big-endian hex address.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	u, err := util.Uint160DecodeBytesBE(raw)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	return Address(u), nil
}

// AddressFromBytes converts exactly 20 big-endian bytes into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return Address{}, err
	}
	return Address(u), nil
}

// Bytes returns the big-endian byte form of the hash.
func (h Hash) Bytes() []byte {
	return util.Uint256(h).BytesBE()
}

// String renders the hash as 0x-prefixed hex.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h.Bytes())
}

// Bytes returns the salt as a byte slice.
func (s Salt) Bytes() []byte {
	return s[:]
}

// String renders the salt as 0x-prefixed hex.
func (s Salt) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// ParseSalt parses a 0x-prefixed or bare hex salt of exactly 32 bytes.
func ParseSalt(v string) (Salt, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
	if err != nil {
		return Salt{}, fmt.Errorf("parse salt %q: %w", v, err)
	}
	if len(raw) != SaltSize {
		return Salt{}, fmt.Errorf("parse salt: want %d bytes, got %d", SaltSize, len(raw))
	}
	var s Salt
	copy(s[:], raw)
	return s, nil
}

// Keccak256 returns the Keccak-256 digest of the concatenation of the given
// byte slices.
func Keccak256(chunks ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		d.Write(c)
	}
	u, _ := util.Uint256DecodeBytesBE(d.Sum(nil))
	return Hash(u)
}

// imageHex is the shell's executable image. It is an opaque, fixed constant:
// every instance runs these exact bytes, and the protocol never inspects or
// rewrites them. Only its hash participates in address derivation.
const imageHex = "363d3d373d3d3d363d6020361060535733600052602036038060200260003751" +
	"1460535736601f57005b60003560601c3d3d3d3d60203603803590602001f43d82803e603f57fd5bf3"

var (
	imageOnce sync.Once
	imageRaw  []byte
	imageSum  Hash
)

func loadImage() {
	raw, err := hex.DecodeString(imageHex)
	if err != nil {
		panic("shell: corrupt executable image constant: " + err.Error())
	}
	imageRaw = raw
	imageSum = Keccak256(raw)
}

// Image returns a copy of the fixed executable image.
func Image() []byte {
	imageOnce.Do(loadImage)
	out := make([]byte, len(imageRaw))
	copy(out, imageRaw)
	return out
}

// ImageHash returns the Keccak-256 hash of the fixed executable image,
// computed once.
func ImageHash() Hash {
	imageOnce.Do(loadImage)
	return imageSum
}

// Instance is a deployed shell. The controller is bound at creation and is
// immutable for the instance's lifetime; there is deliberately no setter.
type Instance struct {
	address    Address
	controller Address
}

// NewInstance binds a shell address to its creating controller.
func NewInstance(address, controller Address) *Instance {
	return &Instance{address: address, controller: controller}
}

// Address returns the instance's own address.
func (i *Instance) Address() Address {
	return i.address
}

// Controller returns the identity bound at creation, the only caller
// authorized to trigger forwarding.
func (i *Instance) Controller() Address {
	return i.controller
}
