package webui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// handleSSEEvents serves the console event stream. A comma-separated
// filter query parameter restricts which event types reach this tab.
func (s *Server) handleSSEEvents(w http.ResponseWriter, r *http.Request) {
	var filters []string
	if raw := r.URL.Query().Get("filter"); raw != "" {
		filters = strings.Split(raw, ",")
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	clientID := uuid.New().String()
	client, err := s.sseManager.RegisterClient(clientID, filters)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.sseManager.UnregisterClient(clientID)

	// Tell the tab its assigned ID before streaming.
	_, _ = fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":\"%s\"}\n\n", clientID)
	flusher.Flush()

	s.streamEvents(w, r, flusher, client)
}

// streamEvents copies queued events to the response until the tab
// disconnects or the manager drops the client.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, flusher http.Flusher, client *SSEClient) {
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case data, ok := <-client.Events:
			if !ok {
				return
			}
			_, _ = w.Write(data)
			flusher.Flush()
		}
	}
}
