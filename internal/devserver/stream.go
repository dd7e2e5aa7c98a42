package devserver

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// lineBreaks folds CRLF and lone CR into LF. SSE data cannot carry a carriage
// return, so fragments arrive with "\n" line breaks only.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// writeEvent frames one SSE event. Every data line gets a single separating
// space so a fragment starting with a space survives the reader.
func writeEvent(w io.Writer, name, data string) {
	fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range strings.Split(lineBreaks.Replace(data), "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func (s *Server) streamChat(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	brand := c.Query("brand")
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "message is required")
		return
	}

	s.mu.RLock()
	_, found := s.ownedConversation(c, id)
	s.mu.RUnlock()
	if !found {
		return
	}
	script, known := s.scripts[brand]
	if !known {
		fail(c, http.StatusBadRequest, "unknown brand "+brand)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	var answer strings.Builder
	for _, chunk := range script.Chunks {
		if s.delay > 0 {
			select {
			case <-ctx.Done():
				s.log.Debug().Str("brand", brand).Msg("stream cancelled by client")
				return
			case <-time.After(s.delay):
			}
		}
		writeEvent(c.Writer, "chunk", chunk)
		c.Writer.Flush()
		answer.WriteString(chunk)
	}

	if script.Err != "" {
		writeEvent(c.Writer, "error", script.Err)
		c.Writer.Flush()
		return
	}
	writeEvent(c.Writer, "complete", "")
	c.Writer.Flush()

	s.mu.Lock()
	if conv, ok := s.conversations[id]; ok {
		now := time.Now()
		conv.Turns = append(conv.Turns,
			models.Turn{Role: "user", Content: req.Message, Created: now},
			models.Turn{Role: "assistant", Model: brand, Content: answer.String(), Created: now},
		)
	}
	s.mu.Unlock()
}
