package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const writeTimeout = time.Minute

// Handler streams a space's events as text/event-stream.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a Handler on top of manager.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// Serve streams spaceID's events until the request ends or the manager
// closes the stream. The caller has already authenticated userID and checked
// the membership.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, spaceID, userID string) {
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("response does not support streaming", "error", err)
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Subscribe(spaceID, userID)
	if err != nil {
		h.logger.Error("failed to open event stream", "error", err)
		http.Error(w, "failed to open event stream", http.StatusInternalServerError)
		return
	}
	defer h.manager.Unsubscribe(client)

	log := h.logger.With("client_id", client.ID, "space_id", spaceID)

	hello := map[string]string{"clientId": client.ID, "spaceId": spaceID}
	if err := h.write(w, rc, "connected", hello); err != nil {
		log.Warn("failed to send hello", "error", err)
		return
	}

	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			if err := h.write(w, rc, string(event.Type), event); err != nil {
				log.Debug("event stream write failed", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// write sends one frame, flushes it and pushes the write deadline forward.
func (h *Handler) write(w io.Writer, rc *http.ResponseController, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	if err := rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		h.logger.Debug("cannot extend write deadline", "error", err)
	}
	return nil
}
