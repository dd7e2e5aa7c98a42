package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/team-kosa-skynet/morningstar/internal/stream"
)

// DoneMarker is accepted as a completion signal in a data line
const DoneMarker = "[DONE]"

// Stream opens the chat stream of one model and implements stream.Transport.
// The returned channel delivers chunks followed by exactly one complete or
// error event, and is closed afterwards or once ctx is done.
func (c *Client) Stream(ctx context.Context, req stream.StreamRequest) (<-chan stream.Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	path := "/conversations/" + strconv.FormatInt(req.ConversationID, 10) + "/stream"
	httpReq, err := c.newRequest(ctx, http.MethodPost, path, url.Values{"brand": {req.Brand}}, map[string]string{"message": req.Message})
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "open stream for %s", req.Brand)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, MaxEventSize))
		if err := c.decode(resp.StatusCode, raw, nil); err != nil {
			return nil, err
		}
		return nil, errors.Errorf("open stream for %s: unexpected status %d", req.Brand, resp.StatusCode)
	}

	c.log.Debug().Str("brand", req.Brand).Int64("conversation", req.ConversationID).Msg("stream opened")

	out := make(chan stream.Event)
	go c.readStream(ctx, resp.Body, out)
	return out, nil
}

// StreamChat is the transport view of the client, handed to stream.NewController
func (c *Client) StreamChat() stream.Transport {
	return c
}

func (c *Client) readStream(ctx context.Context, body io.ReadCloser, out chan<- stream.Event) {
	defer close(out)
	defer body.Close()

	send := func(ev stream.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := NewSSEReader(body)
	for {
		sse, err := reader.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err == io.EOF {
				send(stream.Complete())
				return
			}
			send(stream.Failure(errors.Wrap(err, "read stream").Error()))
			return
		}

		ev, terminal := translate(sse)
		if ev == nil {
			continue
		}
		if !send(*ev) || terminal {
			return
		}
	}
}

// translate maps one SSE event onto a stream event
func translate(sse SSEEvent) (*stream.Event, bool) {
	if strings.TrimSpace(sse.Data) == DoneMarker {
		ev := stream.Complete()
		return &ev, true
	}
	switch sse.Name {
	case "", "chunk", "message":
		if sse.Data == "" {
			return nil, false
		}
		ev := stream.Chunk(sse.Data)
		return &ev, false
	case "complete", "done":
		ev := stream.Complete()
		return &ev, true
	case "error":
		msg := sse.Data
		if msg == "" {
			msg = "stream error"
		}
		ev := stream.Failure(msg)
		return &ev, true
	}
	return nil, false
}
