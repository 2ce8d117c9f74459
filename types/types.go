// Package types defines the Async Agent API data types used for run
// management, message exchange, and agent discovery. Field names use
// camelCase JSON tags to conform to the wire protocol.
package types

import "encoding/json"

// CreateRunPayload is the request payload for creating a run. It carries the
// target agent, the initial message, and optional session and metadata.
type CreateRunPayload struct {
	// AgentID identifies the agent that should execute the run.
	AgentID string `json:"agentId"`
	// Input is the initial run message.
	Input *Message `json:"input"`
	// SessionID is an optional session identifier grouping related runs into
	// a conversation thread.
	SessionID *string `json:"sessionId,omitempty"`
	// IdempotencyKey deduplicates run submissions on the server. When empty
	// the client generates one before sending.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	// Labels carries caller-provided metadata (tenant, priority, etc.).
	Labels map[string]string `json:"labels,omitempty"`
	// Metadata holds optional run-level metadata supplied by the caller.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ListRunsPayload captures the filters and pagination parameters accepted by
// the run listing operation. The zero value lists the first page of all runs.
type ListRunsPayload struct {
	// Status restricts the listing to runs in the given state.
	Status RunStatus
	// SessionID restricts the listing to runs in the given session.
	SessionID string
	// Limit bounds the page size. Zero lets the server pick its default.
	Limit int
	// Cursor resumes a previous listing from its NextCursor.
	Cursor string
}

// RunPage is one page of a run listing.
type RunPage struct {
	// Runs are the runs in this page, most recent first.
	Runs []*Run `json:"runs"`
	// NextCursor resumes the listing when more runs are available. Empty on
	// the last page.
	NextCursor string `json:"nextCursor,omitempty"`
}

// Run is the denormalized view of an agent run returned by the API. It is
// the durable record tracked for observability and lifecycle management.
type Run struct {
	// ID is the unique identifier for the run.
	ID string `json:"id"`
	// AgentID identifies which agent processed the run.
	AgentID string `json:"agentId"`
	// SessionID associates related runs into a conversation thread (optional).
	SessionID *string `json:"sessionId,omitempty"`
	// Status is the current lifecycle state.
	Status RunStatus `json:"status"`
	// Input is the message that started the run.
	Input *Message `json:"input,omitempty"`
	// Output is the final assistant message, set once the run completes.
	Output *Message `json:"output,omitempty"`
	// Artifacts are the run output artifacts accumulated so far.
	Artifacts []*Artifact `json:"artifacts,omitempty"`
	// Error describes the failure when Status is "failed".
	Error *Error `json:"error,omitempty"`
	// CreatedAt records when the run was accepted.
	CreatedAt Timestamp `json:"createdAt"`
	// UpdatedAt records when the run state last changed.
	UpdatedAt Timestamp `json:"updatedAt"`
	// Labels stores caller- or policy-provided labels.
	Labels map[string]string `json:"labels,omitempty"`
	// Metadata holds implementation-defined run metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	// RunPending indicates the run has been accepted but not started yet.
	RunPending RunStatus = "pending"
	// RunRunning indicates the run is actively executing.
	RunRunning RunStatus = "running"
	// RunCompleted indicates the run finished successfully.
	RunCompleted RunStatus = "completed"
	// RunFailed indicates the run failed permanently.
	RunFailed RunStatus = "failed"
	// RunCanceled indicates the run was canceled externally.
	RunCanceled RunStatus = "canceled"
	// RunPaused indicates execution is paused awaiting external intervention.
	RunPaused RunStatus = "paused"
)

// Terminal reports whether the status is final: no further events or state
// transitions will occur for the run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCanceled:
		return true
	}
	return false
}

// Message represents a single message in a run conversation.
type Message struct {
	// Role is the message role ("user", "assistant", or "system").
	Role string `json:"role"`
	// Parts are the ordered content parts that make up the message.
	Parts []*MessagePart `json:"parts"`
}

// MessagePart represents a part of a message (text, structured data, or file).
type MessagePart struct {
	// Type identifies the part kind: "text", "data", or "file".
	Type string `json:"type"`
	// Text is the textual content when Type == "text".
	Text *string `json:"text,omitempty"`
	// Skill names the skill the structured payload targets when Type ==
	// "data". Used for client-side schema validation against the agent card.
	Skill *string `json:"skill,omitempty"`
	// Data is the structured payload when Type == "data".
	Data json.RawMessage `json:"data,omitempty"`
	// MIMEType is the MIME type when Type == "file".
	MIMEType *string `json:"mimeType,omitempty"`
	// URI is the file URI when Type == "file".
	URI *string `json:"uri,omitempty"`
}

// TextPart builds a text message part.
func TextPart(text string) *MessagePart {
	return &MessagePart{Type: "text", Text: &text}
}

// DataPart builds a structured data part targeting the given skill.
func DataPart(skill string, data json.RawMessage) *MessagePart {
	return &MessagePart{Type: "data", Skill: &skill, Data: data}
}

// UserMessage builds a "user" role message from a plain text prompt.
func UserMessage(text string) *Message {
	return &Message{Role: "user", Parts: []*MessagePart{TextPart(text)}}
}

// Artifact represents an output artifact attached to a run, such as a file
// or structured result.
type Artifact struct {
	// Name is the optional display name for the artifact.
	Name *string `json:"name,omitempty"`
	// Description is an optional human-readable description of the artifact.
	Description *string `json:"description,omitempty"`
	// Parts are the content parts that make up the artifact.
	Parts []*MessagePart `json:"parts"`
	// Index is an optional sequence index for incremental artifacts.
	Index *int `json:"index,omitempty"`
	// Append indicates whether this artifact appends to a previous one.
	Append *bool `json:"append,omitempty"`
	// LastChunk reports whether this is the final chunk in a streaming
	// artifact sequence.
	LastChunk *bool `json:"lastChunk,omitempty"`
	// Metadata carries implementation-defined artifact metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunEvent is emitted by the event stream to report run lifecycle updates.
// Exactly one of Status, Message, Artifact, or Error is set depending on the
// event Type.
type RunEvent struct {
	// ID is the stream event identifier used for Last-Event-ID resumption.
	ID string `json:"id,omitempty"`
	// Type identifies the event kind: "status", "message", "artifact", or
	// "error".
	Type string `json:"type"`
	// RunID is the ID of the run this event belongs to.
	RunID string `json:"runId"`
	// Status carries the run state for "status" events.
	Status RunStatus `json:"status,omitempty"`
	// Message carries the message for "message" events.
	Message *Message `json:"message,omitempty"`
	// Artifact carries the artifact for "artifact" events.
	Artifact *Artifact `json:"artifact,omitempty"`
	// Error carries the failure for "error" events.
	Error *Error `json:"error,omitempty"`
	// Timestamp is when the event was produced.
	Timestamp Timestamp `json:"timestamp"`
	// Final reports whether this is the final event for the run.
	Final bool `json:"final,omitempty"`
}

// Event type constants emitted by the run event stream.
const (
	EventStatus   = "status"
	EventMessage  = "message"
	EventArtifact = "artifact"
	EventError    = "error"
)

// AgentCard represents the agent discovery document returned by the agent
// endpoint.
type AgentCard struct {
	// ProtocolVersion is the API protocol version supported by the agent.
	ProtocolVersion string `json:"protocolVersion"`
	// Name is the human-readable agent name.
	Name string `json:"name"`
	// Description is an optional human-readable description of the agent.
	Description string `json:"description,omitempty"`
	// URL is the base URL where the agent is hosted.
	URL string `json:"url"`
	// Version is the agent implementation version.
	Version string `json:"version"`
	// Capabilities captures optional agent capabilities and extensions.
	Capabilities map[string]any `json:"capabilities,omitempty"`
	// Skills enumerates the skills exposed by the agent.
	Skills []*Skill `json:"skills"`
	// SecuritySchemes defines the security schemes supported by the agent.
	SecuritySchemes map[string]*SecurityScheme `json:"securitySchemes,omitempty"`
}

// Skill represents a skill within an AgentCard.
type Skill struct {
	// ID is the unique identifier for the skill within the agent.
	ID string `json:"id"`
	// Name is the human-readable skill name.
	Name string `json:"name"`
	// Description is an optional human-readable description of the skill.
	Description string `json:"description,omitempty"`
	// Tags are optional labels describing the skill.
	Tags []string `json:"tags,omitempty"`
	// InputSchema is the JSON Schema (Draft 2020-12) for the skill's
	// structured input, when the agent declares one.
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// SecurityScheme represents a single security scheme definition in the
// AgentCard.
type SecurityScheme struct {
	// Type is the security scheme type ("http" or "apiKey").
	Type string `json:"type"`
	// Scheme is the HTTP authentication scheme when Type == "http".
	Scheme string `json:"scheme,omitempty"`
	// In is the API key location when Type == "apiKey".
	In string `json:"in,omitempty"`
	// Name is the API key parameter name when Type == "apiKey".
	Name string `json:"name,omitempty"`
}

// Health is the liveness document returned by the health endpoint.
type Health struct {
	// Status is "ok" when the service is healthy.
	Status string `json:"status"`
	// Version is the server implementation version.
	Version string `json:"version,omitempty"`
}
