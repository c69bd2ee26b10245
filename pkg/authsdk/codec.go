package authsdk

import (
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/admindash/pkg/cryptox"
)

// Codec turns persisted values into bytes and back. Decode failures wrap
// ErrMalformedState.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec stores values as plain JSON. It is the default.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedState, err)
	}
	return nil
}

// SealedCodec encrypts the JSON form with AES-256-GCM. It only keeps the
// values unreadable to someone without the key; the key must come from
// the runtime environment, not the binary.
type SealedCodec struct {
	key []byte
}

// NewSealedCodec derives an AES-256 key from secret.
func NewSealedCodec(secret []byte) *SealedCodec {
	return &SealedCodec{key: cryptox.DeriveKey(secret)}
}

func (c *SealedCodec) Encode(v any) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return cryptox.Seal(c.key, plain)
}

func (c *SealedCodec) Decode(data []byte, v any) error {
	plain, err := cryptox.Open(c.key, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedState, err)
	}
	return JSONCodec{}.Decode(plain, v)
}
