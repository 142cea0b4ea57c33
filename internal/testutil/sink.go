package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"jobcore/pkg/cloudevent"
)

// Sink is an HTTP server that records every CloudEvent posted to it.
type Sink struct {
	*httptest.Server

	mu         sync.Mutex
	events     []cloudevent.CloudEvent
	signatures []string
	statuses   []int
}

// NewSink starts a sink that answers with the given status codes in order,
// then 200 for every later request. The server is closed with the test.
func NewSink(tb testing.TB, statuses ...int) *Sink {
	tb.Helper()
	s := &Sink{statuses: statuses}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	tb.Cleanup(s.Close)
	return s
}

func (s *Sink) handle(w http.ResponseWriter, r *http.Request) {
	var event cloudevent.CloudEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	status := http.StatusOK
	if len(s.statuses) > 0 {
		status, s.statuses = s.statuses[0], s.statuses[1:]
	}
	if status < 300 {
		s.events = append(s.events, event)
		s.signatures = append(s.signatures, r.Header.Get(cloudevent.SignatureHeader))
	}
	s.mu.Unlock()

	w.WriteHeader(status)
}

// Events returns a copy of the accepted events in arrival order.
func (s *Sink) Events() []cloudevent.CloudEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cloudevent.CloudEvent(nil), s.events...)
}

// Signatures returns the signature header of each accepted event.
func (s *Sink) Signatures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.signatures...)
}

// Len returns the number of accepted events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
