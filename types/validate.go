package types

import (
	"errors"
	"fmt"
)

// Validate checks the payload for the structural requirements the server
// enforces so obviously broken submissions fail before any network I/O.
func (p *CreateRunPayload) Validate() error {
	if p == nil {
		return errors.New("payload is required")
	}
	if p.AgentID == "" {
		return errors.New("agent id is required")
	}
	if p.Input == nil {
		return errors.New("input message is required")
	}
	return p.Input.Validate()
}

// Validate checks that the message has a role and at least one well-formed
// part.
func (m *Message) Validate() error {
	if m == nil {
		return errors.New("message is required")
	}
	if m.Role == "" {
		return errors.New("message role is required")
	}
	if len(m.Parts) == 0 {
		return errors.New("message must have at least one part")
	}
	for i, part := range m.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks the part invariants for its declared type.
func (p *MessagePart) Validate() error {
	if p == nil {
		return errors.New("part is required")
	}
	switch p.Type {
	case "text":
		if p.Text == nil {
			return errors.New("text part requires text")
		}
	case "data":
		if len(p.Data) == 0 {
			return errors.New("data part requires data")
		}
	case "file":
		if p.URI == nil || *p.URI == "" {
			return errors.New("file part requires a uri")
		}
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
	return nil
}
