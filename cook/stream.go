package cook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tasteos.dev/api"
	"tasteos.dev/common"
)

// Stream serves the session update feed over Server-Sent Events. Every
// frame carries a notification payload {type, session_id, workspace_id,
// updated_at}; the first one describes the state at subscription time
// so clients fetch immediately, and afterwards every session_updated
// notification is forwarded. The stream is a notification channel
// only; clients re-fetch session state themselves. Keep-alive comments
// go out on an interval so proxies keep the connection open. After the
// session reaches a terminal state the stream stays open for a short
// grace period, then ends.
func (h *Handlers) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID := api.WorkspaceID(c)
	sessionID := c.Param("id")

	session, err := h.svc.Get(ctx, workspaceID, sessionID)
	if err != nil {
		return err
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return common.Fatalf("streaming unsupported by connection")
	}

	sub, err := h.svc.bus.Subscribe(ctx, sessionID)
	if err != nil {
		return err
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	w := c.Response().Writer
	first := Notification{
		Type:        NotificationSessionUpdated,
		SessionID:   session.ID,
		WorkspaceID: session.WorkspaceID,
		UpdatedAt:   session.UpdatedAt,
	}
	if err := writeSSE(w, first); err != nil {
		return nil
	}
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	var graceTimer *time.Timer
	var grace <-chan time.Time
	if !session.Active() {
		graceTimer = time.NewTimer(h.doneGrace)
		grace = graceTimer.C
	}
	defer func() {
		if graceTimer != nil {
			graceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-grace:
			return nil
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		case n, open := <-sub:
			if !open {
				return nil
			}
			if err := writeSSE(w, n); err != nil {
				return nil
			}
			flusher.Flush()

			if grace == nil {
				current, err := h.svc.Get(ctx, workspaceID, sessionID)
				if err == nil && !current.Active() {
					graceTimer = time.NewTimer(h.doneGrace)
					grace = graceTimer.C
				}
			}
		}
	}
}

// writeSSE writes one data event in the text/event-stream framing.
func writeSSE(w interface{ Write([]byte) (int, error) }, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
