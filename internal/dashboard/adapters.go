// Package dashboard binds the generic watch supervisor to the two resources
// the backend exposes over its real-time channel: a single agent run's event
// log and a project's active preview servers.
package dashboard

import (
	"encoding/json"

	"github.com/statusdeck/statusdeck/internal/protocol"
	"github.com/statusdeck/statusdeck/internal/watch"
)

// RunAdapter tracks one agent run by run id.
func RunAdapter() watch.Adapter[protocol.RunState] {
	return watch.Adapter[protocol.RunState]{
		EventsPath: func(id string) string {
			return "/api/runs/" + id + "/events"
		},
		SnapshotPath: func(id string) string {
			return "/api/runs/" + id
		},
		Decode: func(data json.RawMessage) (protocol.RunState, error) {
			var r protocol.RunState
			err := json.Unmarshal(data, &r)
			return r, err
		},
		Terminal: func(r protocol.RunState) bool {
			return r.Status.IsTerminal()
		},
		Completion: runCompletion,
		UserError:  runUserError,
	}
}

// runCompletion reports events after which the run's REST snapshot should be
// re-fetched so final status is authoritative.
func runCompletion(ev watch.Event) bool {
	switch protocol.MessageType(ev.Type) {
	case protocol.MsgCompleted:
		return true
	case protocol.MsgStatus:
		var msg protocol.StreamMessage
		if json.Unmarshal(ev.Raw, &msg) != nil {
			return false
		}
		var p protocol.StatusPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return false
		}
		return p.Status.IsTerminal()
	}
	return false
}

func runUserError(ev watch.Event) (string, string, bool) {
	if protocol.MessageType(ev.Type) != protocol.MsgError {
		return "", "", false
	}
	var msg protocol.StreamMessage
	if json.Unmarshal(ev.Raw, &msg) != nil {
		return "", "", false
	}
	var p protocol.ErrorPayload
	if json.Unmarshal(msg.Payload, &p) != nil || p.Message == "" {
		return "", "", false
	}
	key := p.Key
	if key == "" {
		key = "run"
	}
	return key, p.Message, true
}

// ServerAdapter tracks a project's preview servers by project id. The list
// has no terminal status; polling runs until the subscription is torn down.
func ServerAdapter() watch.Adapter[protocol.ServerList] {
	return watch.Adapter[protocol.ServerList]{
		EventsPath: func(id string) string {
			return "/api/projects/" + id + "/servers/events"
		},
		SnapshotPath: func(id string) string {
			return "/api/projects/" + id + "/servers"
		},
		Decode: func(data json.RawMessage) (protocol.ServerList, error) {
			var l protocol.ServerList
			err := json.Unmarshal(data, &l)
			return l, err
		},
		Terminal: func(protocol.ServerList) bool {
			return false
		},
		Completion: serverCompletion,
		UserError:  serverUserError,
	}
}

// serverCompletion refreshes the list whenever a server starts or stops;
// the event tells us membership changed, the snapshot says how.
func serverCompletion(ev watch.Event) bool {
	switch protocol.MessageType(ev.Type) {
	case protocol.MsgServerStarted, protocol.MsgServerStopped:
		return true
	}
	return false
}

func serverUserError(ev watch.Event) (string, string, bool) {
	if protocol.MessageType(ev.Type) != protocol.MsgError {
		return "", "", false
	}
	var msg protocol.StreamMessage
	if json.Unmarshal(ev.Raw, &msg) != nil {
		return "", "", false
	}
	var p protocol.ErrorPayload
	if json.Unmarshal(msg.Payload, &p) != nil || p.Message == "" {
		return "", "", false
	}
	key := p.Key
	if key == "" {
		key = "servers"
	}
	return key, p.Message, true
}
