package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	mapset "github.com/deckarep/golang-set/v2"

	"jobcore/internal/apperrors"
	"jobcore/internal/cancel"
	"jobcore/pkg/cloudevent"
	"jobcore/pkg/jobid"
)

const cloudEventsContentType = "application/cloudevents+json"

// CancelPolicy decides who may cancel a service.
type CancelPolicy struct {
	signatureRequired bool
	signatureKey      string
	administrators    mapset.Set[string]
}

// NewCancelPolicy creates a policy. When signatureRequired is set every
// request must carry the HMAC of its user under key.
func NewCancelPolicy(signatureRequired bool, key string, administrators []string) *CancelPolicy {
	return &CancelPolicy{
		signatureRequired: signatureRequired,
		signatureKey:      key,
		administrators:    mapset.NewSet(administrators...),
	}
}

// verify checks the caller signature of req.
func (p *CancelPolicy) verify(req cancel.Request) bool {
	if !p.signatureRequired {
		return true
	}
	if p.signatureKey == "" || req.Signature == "" {
		return false
	}
	return cloudevent.Verify([]byte(req.User), req.Signature, p.signatureKey)
}

// authorize returns a refusal message, or "" when user may cancel a service
// owned by owner.
func (p *CancelPolicy) authorize(req cancel.Request, owner string) string {
	if req.Administrator {
		if !p.administrators.Contains(req.User) {
			return fmt.Sprintf("not canceled, %s is not an administrator", req.User)
		}
		return ""
	}
	if req.User != owner {
		return fmt.Sprintf("not canceled, %s is not the owner", req.User)
	}
	return ""
}

// Cancel handles POST /or. Malformed or unsigned requests are answered
// with a 4xx status; requests that reach a decision are answered with 200
// and the decision in the reply message.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var event cloudevent.CloudEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeReply(w, http.StatusBadRequest, cancel.Reply{Message: "invalid event: " + err.Error()})
		return
	}
	if err := event.Validate(); err != nil {
		h.writeReply(w, http.StatusBadRequest, cancel.Reply{Message: "invalid event: " + err.Error()})
		return
	}
	req, err := cancel.ParseRequest(&event)
	if err != nil {
		h.writeReply(w, http.StatusBadRequest, cancel.Reply{Message: "invalid request: " + err.Error()})
		return
	}

	logger := slog.With("component", "cancel", "id", req.ID, "user", req.User)
	reply := cancel.Reply{ID: req.ID}
	if _, err := jobid.ParseFriendly(req.ID); err != nil {
		reply.Message = "invalid id: " + err.Error()
		h.writeReply(w, http.StatusBadRequest, reply)
		return
	}
	if req.User == "" {
		reply.Message = "user is required"
		h.writeReply(w, http.StatusBadRequest, reply)
		return
	}
	if !h.cancel.verify(req) {
		logger.Warn("Cancel request signature rejected")
		reply.Message = "signature verification failed"
		h.writeReply(w, http.StatusUnauthorized, reply)
		return
	}

	j, err := h.svc.Get(req.ID)
	if err != nil {
		h.replyError(w, r, reply, err)
		return
	}
	if msg := h.cancel.authorize(req, j.StandardInfo().User); msg != "" {
		logger.Warn("Cancel request refused", "owner", j.StandardInfo().User, "administrator", req.Administrator)
		reply.Message = msg
		h.writeReply(w, http.StatusOK, reply)
		return
	}

	reply.Message, err = h.svc.CancelService(r.Context(), req.ID, req.User, req.Administrator)
	if err != nil {
		h.replyError(w, r, reply, err)
		return
	}
	h.writeReply(w, http.StatusOK, reply)
}

// replyError answers lookup and kind rejections in the reply message.
// Anything else is an internal error.
func (h *Handler) replyError(w http.ResponseWriter, r *http.Request, reply cancel.Reply, err error) {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
		reply.Message = err.Error()
		h.writeReply(w, http.StatusOK, reply)
		return
	}
	slog.Error("Cancel failed", "error", err, "path", r.URL.Path, "id", reply.ID)
	reply.Message = "internal error"
	h.writeReply(w, http.StatusInternalServerError, reply)
}

func (h *Handler) writeReply(w http.ResponseWriter, status int, reply cancel.Reply) {
	writeJSON(w, cloudEventsContentType, status, reply.Event())
}
