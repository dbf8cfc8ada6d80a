package pubsub

import (
	"encoding/base64"
	"encoding/json"

	"github.com/harborml/harbor/internal/shared/errors"
)

// MaxMessageSize is the ceiling on the encoded publish payload, in bytes.
// The check applies to the base64 representation as it arrives on the wire,
// before any decode.
const MaxMessageSize = 10_000_000

// Message is an ephemeral publish unit. Data carries a base64-encoded UTF-8
// JSON string. Messages are never persisted; they exist for the duration of a
// publish call.
type Message struct {
	Data string `json:"data" binding:"required"`
}

// Validate checks a raw publish payload and returns it unchanged on success.
//
// Decoding here is a validation gate, not a transformation: the encoded string
// is what gets stored or forwarded at the wire level. The decoded JSON text
// only materializes again inside the delivery engine, as the push body.
func Validate(raw string) (string, error) {
	if len(raw) > MaxMessageSize {
		return "", errors.ErrPayloadTooLarge
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", errors.ErrInvalidEncoding
	}

	if !json.Valid(decoded) {
		return "", errors.ErrInvalidPayload
	}

	return raw, nil
}

// decode returns the decoded JSON text of an already-validated payload.
func decode(raw string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.ErrInvalidEncoding
	}
	return decoded, nil
}
