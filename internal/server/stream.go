package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleWorkoutStream serves the live workout feed as server-sent events.
// The first event is the current snapshot; every append or delete pushes a
// fresh one. The subscription is torn down when the client disconnects.
func (s *Server) handleWorkoutStream(w http.ResponseWriter, r *http.Request) {
	sub, err := s.workouts.SubscribeWorkouts(r.Context(), UserID(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer sub.Cancel()

	serveSSE(w, r, func() (any, bool) {
		v, ok := <-sub.C
		return v, ok
	})
}

// handleProfileStream serves live profile snapshots as server-sent events.
func (s *Server) handleProfileStream(w http.ResponseWriter, r *http.Request) {
	sub, err := s.profiles.SubscribeProfile(r.Context(), UserID(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer sub.Cancel()

	serveSSE(w, r, func() (any, bool) {
		v, ok := <-sub.C
		return v, ok
	})
}

// serveSSE writes each received snapshot as one SSE data frame until the
// client goes away or the feed closes.
func serveSSE(w http.ResponseWriter, r *http.Request, recv func() (any, bool)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan any)
	go func() {
		defer close(events)
		for {
			v, ok := recv()
			if !ok {
				return
			}
			select {
			case events <- v:
			case <-r.Context().Done():
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
