// Package cancel implements the service cancel request: the command line
// client and the event payloads it exchanges with the orchestrator.
package cancel

import (
	"fmt"

	"jobcore/pkg/cloudevent"
)

// Event types of the cancel exchange.
const (
	EventTypeRequest = "ducc.service.cancel"
	EventTypeReply   = "ducc.service.cancel.reply"
)

// Sources of the cancel events.
const (
	SourceClient       = "jobcore/service-cancel"
	SourceOrchestrator = "jobcore/orchestrator"
)

// Request asks the orchestrator to cancel a service.
type Request struct {
	ID            string `json:"id"`
	User          string `json:"user"`
	Administrator bool   `json:"administrator"`
	// Signature is the HMAC of User, present when signatures are required.
	Signature string `json:"signature,omitempty"`
}

// Event wraps the request in a CloudEvent.
func (r Request) Event() *cloudevent.CloudEvent {
	data := map[string]any{
		"id":            r.ID,
		"user":          r.User,
		"administrator": r.Administrator,
	}
	if r.Signature != "" {
		data["signature"] = r.Signature
	}
	return cloudevent.New(EventTypeRequest, SourceClient, r.ID, data)
}

// ParseRequest decodes a cancel request event.
func ParseRequest(e *cloudevent.CloudEvent) (Request, error) {
	var r Request
	if e.Type != EventTypeRequest {
		return r, fmt.Errorf("unexpected event type %q", e.Type)
	}
	if err := e.DecodeData(&r); err != nil {
		return r, err
	}
	return r, nil
}

// Reply is the orchestrator's answer to a Request.
type Reply struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Event wraps the reply in a CloudEvent.
func (r Reply) Event() *cloudevent.CloudEvent {
	return cloudevent.New(EventTypeReply, SourceOrchestrator, r.ID, map[string]any{
		"id":      r.ID,
		"message": r.Message,
	})
}

// ParseReply decodes a cancel reply event.
func ParseReply(e *cloudevent.CloudEvent) (Reply, error) {
	var r Reply
	if e.Type != EventTypeReply {
		return r, fmt.Errorf("unexpected event type %q", e.Type)
	}
	if err := e.DecodeData(&r); err != nil {
		return r, err
	}
	return r, nil
}

// String formats the reply the way the client prints it.
func (r Reply) String() string {
	return fmt.Sprintf("Service %s %s", r.ID, r.Message)
}
