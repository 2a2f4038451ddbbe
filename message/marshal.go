package message

import (
	"github.com/simforge/simstate/codec"
)

// Marshal encodes a state message for transport.
func Marshal(msg any) ([]byte, error) {
	return codec.Encode(msg)
}

// Unmarshal decodes a state message received from transport.
func Unmarshal(bz []byte, msg any) error {
	return codec.DecodeInto(bz, msg)
}
