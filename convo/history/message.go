package history

import (
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Records are append-only: once written
// through a backend they are never mutated.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	ImageRef  string    `json:"image_ref,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate enforces the record contract: a known role, non-empty content,
// and images on user messages only.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser:
		if m.Text == "" && m.ImageRef == "" {
			return fmt.Errorf("%w: text and image_ref both empty", ErrInvalidMessage)
		}
	case RoleAssistant:
		if m.ImageRef != "" {
			return fmt.Errorf("%w: assistant message carries image_ref", ErrInvalidMessage)
		}
		if m.Text == "" {
			return fmt.Errorf("%w: empty assistant text", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, m.Role)
	}
	return nil
}

// Encode produces the wire form shared by both backends: one JSON object
// per record, self-describing, safe to append line by line.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrStorage, err)
	}
	return data, nil
}

// DecodeMessage is the inverse of Encode.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: decode: %v", ErrStorage, err)
	}
	return m, nil
}
