// Package protocol defines the wire types shared with the dashboard backend.
// Types mirror the backend's JSON shapes without importing backend code.
package protocol

import (
	"encoding/json"
	"time"
)

// MessageType identifies the kind of stream message.
type MessageType string

const (
	MsgLog           MessageType = "log"
	MsgToolCall      MessageType = "tool_call"
	MsgStatus        MessageType = "status"
	MsgCompleted     MessageType = "completed"
	MsgError         MessageType = "error"
	MsgServerStarted MessageType = "server_started"
	MsgServerStopped MessageType = "server_stopped"
	MsgServerOutput  MessageType = "server_output"
)

// StreamMessage is the envelope for every frame on the event stream. Unknown
// Type values are forwarded to subscribers untouched; only Type is required.
type StreamMessage struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RunStatus is an agent run's lifecycle state.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether no further state changes are expected for a run
// with this status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	}
	return false
}

// RunState is the canonical snapshot of a single agent run, fetched from
// GET /api/runs/{id} and overwritten wholesale on each poll.
type RunState struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	TaskID      string     `json:"taskId,omitempty"`
	Status      RunStatus  `json:"status"`
	Model       string     `json:"model,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExitCode    *int       `json:"exitCode,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ServerStatus is a preview server's lifecycle state.
type ServerStatus string

const (
	ServerStarting ServerStatus = "starting"
	ServerRunning  ServerStatus = "running"
	ServerStopped  ServerStatus = "stopped"
	ServerErrored  ServerStatus = "errored"
)

// ServerState describes one active preview server, as returned by
// GET /api/servers.
type ServerState struct {
	ProjectID string       `json:"projectId"`
	Name      string       `json:"name"`
	URL       string       `json:"url,omitempty"`
	Port      int          `json:"port,omitempty"`
	PID       int          `json:"pid,omitempty"`
	Status    ServerStatus `json:"status"`
	StartedAt time.Time    `json:"startedAt"`
	LastError string       `json:"lastError,omitempty"`
}

// ServerList is the canonical snapshot for the preview-server subscription.
type ServerList struct {
	Servers []ServerState `json:"servers"`
}

// --- stream payload types ---

// LogPayload carries one line of run output.
type LogPayload struct {
	Line   string    `json:"line"`
	Stream string    `json:"stream,omitempty"` // "stdout" or "stderr"
	Time   time.Time `json:"time,omitempty"`
}

// ToolCallPayload describes a tool invocation made by the agent.
type ToolCallPayload struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input,omitempty"`
}

// StatusPayload announces a run status change mid-stream. The REST snapshot
// remains authoritative for final status.
type StatusPayload struct {
	Status RunStatus `json:"status"`
}

// ErrorPayload is a domain-reported error whose message is meant for the
// user. Key scopes the error to its originating context so unrelated errors
// do not overwrite each other.
type ErrorPayload struct {
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

// Envelope is the JSON wrapper on every REST response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
