package shell

// WordSize is the width of the leading calldata word that carries the
// delegate address.
const WordSize = 32

// addressOffset is where the 20 address bytes sit inside the leading word;
// everything before it must be zero for the word to decode.
const addressOffset = WordSize - 20

// Encode produces delegation calldata: the delegate address left-padded with
// zero bytes to a full 32-byte word, followed verbatim by the forwarding
// payload.
func Encode(delegate Address, payload []byte) []byte {
	out := make([]byte, WordSize, WordSize+len(payload))
	copy(out[addressOffset:], delegate.Bytes())
	return append(out, payload...)
}

// Decode interprets invocation input as a delegation request. It reports
// ok=false when the input is shorter than one word or when any padding byte
// above the address width is nonzero. The strict zero-padding check is the
// safety property that keeps ordinary calls, whose first bytes are free-form,
// from ever being mistaken for a delegation request.
func Decode(input []byte) (delegate Address, payload []byte, ok bool) {
	if len(input) < WordSize {
		return Address{}, nil, false
	}
	for _, b := range input[:addressOffset] {
		if b != 0 {
			return Address{}, nil, false
		}
	}
	delegate, err := AddressFromBytes(input[addressOffset:WordSize])
	if err != nil {
		return Address{}, nil, false
	}
	return delegate, input[WordSize:], true
}
