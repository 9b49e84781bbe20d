package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsEvent is the frame written to WebSocket consumers. It carries the same
// payloads as the SSE stream, tagged with the job id and a server timestamp.
type wsEvent struct {
	Type  string         `json:"type"`
	JobID string         `json:"jobId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

// PlacementWSHandler serves /ws/placement?jobId=... and streams job events
// until the client disconnects or unsubscribes by closing the socket.
func (s *Server) PlacementWSHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing jobId", "Pass ?jobId= to stream a job.", r.URL.Path)
		return
	}
	pr := s.getPrincipal(r)
	if _, ok := s.Jobs.get(pr.Tenant, jobID); !ok {
		writeProblem(w, http.StatusNotFound, "Job not found", "No job with id "+jobID, r.URL.Path)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.Broker.Subscribe(jobID)
	defer s.Broker.Unsubscribe(jobID, ch)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// Clients send no frames we care about, but the read loop drives pong
	// handling and tells us when the peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			out := wsEvent{Type: evt.Type, JobID: jobID, TS: time.Now().UTC().Format(time.RFC3339), Data: evt.Data}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
