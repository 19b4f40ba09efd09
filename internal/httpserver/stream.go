package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vpntools/vpnconsole/internal/model"
)

const defaultLogLimit = 100

// handleLogs serves the non-streaming log query, newest first.
func (s *Server) handleLogs(c *gin.Context) {
	filter := filterFromQuery(c)

	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := s.deps.Archive.Recent(limit, filter, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []model.LogRecord{}
	}
	c.JSON(http.StatusOK, logs)
}

// handleLogStream serves the SSE log stream. The first event carries the
// filtered history in chronological order; updates follow as the tailer
// picks up new lines. Comment keepalives go out when the stream has been
// quiet for a while.
func (s *Server) handleLogStream(c *gin.Context) {
	filter := filterFromQuery(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	// Subscribe before the history query so no update published in
	// between can be missed.
	updates, cancel := s.deps.Hub.Subscribe(filter)
	defer cancel()

	history, err := s.deps.Archive.Recent(model.DefaultLogBuffer, filter, false)
	if err != nil {
		log.WithError(err).Error("log stream: history query failed")
		history = nil
	}
	if history == nil {
		history = []model.LogRecord{}
	}

	if err := sse.Encode(c.Writer, sse.Event{
		Data: model.StreamMessage{Type: model.StreamInitial, Logs: history},
	}); err != nil {
		return
	}
	c.Writer.Flush()

	keepalive := time.NewTicker(model.DefaultKeepaliveInterval)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case batch, ok := <-updates:
			if !ok {
				return false
			}
			sort.SliceStable(batch, func(i, j int) bool {
				return batch[i].Timestamp < batch[j].Timestamp
			})
			if err := sse.Encode(w, sse.Event{
				Data: model.StreamMessage{Type: model.StreamUpdate, Logs: batch},
			}); err != nil {
				return false
			}
			keepalive.Reset(model.DefaultKeepaliveInterval)
			return true

		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			return true

		case <-c.Request.Context().Done():
			return false
		}
	})
}

func filterFromQuery(c *gin.Context) model.Filter {
	return model.Filter{
		Types:  model.ParseTypeList(c.Query("type")),
		Search: c.Query("search"),
	}
}
