package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from arbitrary dev hosts; job ids are
	// unguessable and the stream is read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// jobUpdate is one progress frame pushed to the client.
type jobUpdate struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// JobStreamHandler streams job progress over a WebSocket. The registry
// is polled; a frame is pushed whenever progress moved, and the
// connection closes normally after the terminal frame.
func (h *Handlers) JobStreamHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	if _, ok := h.store.Get(id); !ok {
		msg := websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "unknown job: "+id)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}

	h.logger.Debug("job stream opened", zap.String("job_id", id))

	ticker := time.NewTicker(h.wsPollInterval)
	defer ticker.Stop()

	// Reads are discarded; the loop exits when the client goes away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Start below any real progress so the first snapshot is always
	// pushed.
	lastProgress := -1

	for {
		job, ok := h.store.Get(id)
		if !ok {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job removed")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}

		if job.Progress != lastProgress {
			lastProgress = job.Progress
			update := jobUpdate{
				JobID:     job.ID,
				Status:    string(job.Status),
				Progress:  job.Progress,
				Message:   job.Message,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}

		if job.Status.Terminal() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			h.logger.Debug("job stream closed", zap.String("job_id", id), zap.String("status", string(job.Status)))
			return
		}

		select {
		case <-ticker.C:
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
