package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugmurthy/asyncAgent/types"
)

const searchSchema = `{
	"type": "object",
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"limit": {"type": "integer", "minimum": 1}
	},
	"required": ["query"],
	"additionalProperties": false
}`

func TestRegisterAndValidate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("search", json.RawMessage(searchSchema)))
	assert.True(t, r.Known("search"))

	require.NoError(t, r.Validate("search", json.RawMessage(`{"query":"golang","limit":5}`)))

	err := r.Validate("search", json.RawMessage(`{"limit":5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
}

func TestValidateUnknownSkillPasses(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Validate("unknown", json.RawMessage(`{"anything":true}`)))
}

func TestValidateRejectsInvalidJSON(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("search", json.RawMessage(searchSchema)))
	require.Error(t, r.Validate("search", json.RawMessage(`{"query":`)))
}

func TestRegisterRejectsBadSchema(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Register("broken", json.RawMessage(`{"type": 42`)))
}

func TestLoadCard(t *testing.T) {
	r := NewRegistry()
	card := &types.AgentCard{
		Skills: []*types.Skill{
			{ID: "search", InputSchema: json.RawMessage(searchSchema)},
			{ID: "chat"}, // no schema declared
		},
	}
	require.NoError(t, r.LoadCard(card))
	assert.True(t, r.Known("search"))
	assert.False(t, r.Known("chat"))

	// Reloading replaces previously registered schemas.
	require.NoError(t, r.LoadCard(&types.AgentCard{}))
	assert.False(t, r.Known("search"))
}

func TestLoadCardReportsSkill(t *testing.T) {
	r := NewRegistry()
	card := &types.AgentCard{
		Skills: []*types.Skill{
			{ID: "broken", InputSchema: json.RawMessage(`not json`)},
		},
	}
	err := r.LoadCard(card)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestValidateMessage(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("search", json.RawMessage(searchSchema)))

	ok := &types.Message{Role: "user", Parts: []*types.MessagePart{
		types.TextPart("find this"),
		types.DataPart("search", json.RawMessage(`{"query":"golang"}`)),
	}}
	require.NoError(t, r.ValidateMessage(ok))

	bad := &types.Message{Role: "user", Parts: []*types.MessagePart{
		types.DataPart("search", json.RawMessage(`{"query":""}`)),
	}}
	require.Error(t, r.ValidateMessage(bad))

	require.NoError(t, r.ValidateMessage(nil))
}
