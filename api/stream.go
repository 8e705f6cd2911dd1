package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/calltracker/timer"
)

// StreamCall sends live readings as server-sent events while a call runs.
// The first event is the current reading; an "end" event carries the
// reading after the call stops. Idle callers get the "end" event only.
// GET /api/call/stream
func (h *Handler) StreamCall(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server's write timeout would cut a long call short.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	interval := h.StreamInterval
	if interval <= 0 {
		interval = DefaultStreamInterval
	}

	readings := h.Engine.Watch(r.Context(), h.Clock, interval)
	if h.Engine.Phase() == timer.PhaseInCall {
		if err := writeEvent(w, rc, "reading", toReadingDTO(h.Engine.Tick(h.Clock.Now()))); err != nil {
			return
		}
	}
	for reading := range readings {
		if err := writeEvent(w, rc, "reading", toReadingDTO(reading)); err != nil {
			h.Log.Debug("stream closed", "err", err)
			return
		}
	}
	if r.Context().Err() != nil {
		return
	}
	writeEvent(w, rc, "end", toReadingDTO(h.Engine.Tick(h.Clock.Now())))
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
