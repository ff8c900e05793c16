package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/events"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

// DefaultHeartbeatInterval is how often an idle stream gets a comment line.
const DefaultHeartbeatInterval = 15 * time.Second

const sseContentType = "text/event-stream"

// setSSEHeaders sets the standard event-stream headers.
func setSSEHeaders(w gin.ResponseWriter) {
	w.Header().Set("Content-Type", sseContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeEvent writes evt as a single "data: <json>" frame and flushes.
func writeEvent(w gin.ResponseWriter, evt events.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err = fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.Flush()
	return nil
}

// writeHeartbeat writes a comment line to keep proxies from closing an
// idle stream.
func writeHeartbeat(w gin.ResponseWriter) error {
	if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	w.Flush()
	return nil
}

// forward pumps bridge events into a channel so the writer can select on
// them alongside the heartbeat ticker. The channel closes after done or
// when ctx ends.
func forward(ctx context.Context, b *events.Bridge) <-chan events.Event {
	out := make(chan events.Event)
	go func() {
		defer close(out)
		for {
			evt, ok := b.Next(ctx)
			if !ok {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// streamEvents writes bridge events until the done event or client
// disconnect. A disconnect leaves the producer running to completion.
func streamEvents(c *gin.Context, b *events.Bridge, heartbeat time.Duration, log logger.Logger) {
	ctx := c.Request.Context()
	evts := forward(ctx, b)

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-evts:
			if !ok {
				return
			}
			if err := writeEvent(c.Writer, evt); err != nil {
				log.Debug("Stream write failed (client likely disconnected)",
					logger.Error(err),
					logger.String("event_type", string(evt.Type)),
				)
				return
			}
			if evt.IsTerminal() {
				return
			}
		case <-ticker.C:
			if err := writeHeartbeat(c.Writer); err != nil {
				log.Debug("Stream heartbeat failed (client disconnected)")
				return
			}
		case <-ctx.Done():
			log.Debug("Stream client went away")
			return
		}
	}
}
