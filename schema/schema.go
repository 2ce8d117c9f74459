// Package schema validates structured run inputs against the JSON Schema
// documents agents declare for their skills. Schemas come from the agent
// card; the registry compiles them once and validates data parts before the
// client puts them on the wire.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ugmurthy/asyncAgent/types"
)

// Registry compiles and caches skill input schemas. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// LoadCard compiles the input schemas declared by the agent card, replacing
// any previously registered schemas. Skills without a declared schema are
// skipped.
func (r *Registry) LoadCard(card *types.AgentCard) error {
	if card == nil {
		return nil
	}
	compiled := make(map[string]*jsonschema.Schema, len(card.Skills))
	for _, skill := range card.Skills {
		if skill == nil || len(skill.InputSchema) == 0 {
			continue
		}
		s, err := compile(skill.ID, skill.InputSchema)
		if err != nil {
			return fmt.Errorf("skill %s: %w", skill.ID, err)
		}
		compiled[skill.ID] = s
	}
	r.mu.Lock()
	r.schemas = compiled
	r.mu.Unlock()
	return nil
}

// Register compiles and stores a single skill schema.
func (r *Registry) Register(skillID string, schema json.RawMessage) error {
	s, err := compile(skillID, schema)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.schemas[skillID] = s
	r.mu.Unlock()
	return nil
}

// Known reports whether a schema is registered for the skill.
func (r *Registry) Known(skillID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[skillID]
	return ok
}

// Validate checks the data against the skill's registered schema. Unknown
// skills pass: the server remains authoritative for skills the card does
// not describe.
func (r *Registry) Validate(skillID string, data json.RawMessage) error {
	r.mu.RLock()
	s, ok := r.schemas[skillID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("skill %s: invalid input json: %w", skillID, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("skill %s: %w", skillID, err)
	}
	return nil
}

// ValidateMessage validates every data part of the message that names a
// skill.
func (r *Registry) ValidateMessage(msg *types.Message) error {
	if msg == nil {
		return nil
	}
	for _, part := range msg.Parts {
		if part == nil || part.Type != "data" || part.Skill == nil {
			continue
		}
		if err := r.Validate(*part.Skill, part.Data); err != nil {
			return err
		}
	}
	return nil
}

func compile(skillID string, schema json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("invalid schema json: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	resource := skillID + ".schema.json"
	if err := compiler.AddResource(resource, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}
