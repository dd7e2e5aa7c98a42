package stream

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// silentTransport never delivers anything until cancelled
type silentTransport struct{}

func (silentTransport) Stream(ctx context.Context, _ StreamRequest) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func TestLateEventFromSupersededGenerationIsDropped(t *testing.T) {
	c := NewController(silentTransport{}, WithRevealInterval(0))
	defer c.Close()

	gpt := models.ModelInfo{ID: "gpt", Brand: "gpt"}
	sub := Submission{ConversationID: 1, Token: "t", Question: "A", Models: []models.ModelInfo{gpt}}
	require.NoError(t, c.Start(context.Background(), sub))
	genA, ok := c.Session("gpt")
	require.True(t, ok)

	sub.Question = "B"
	require.NoError(t, c.Start(context.Background(), sub))
	genB, _ := c.Session("gpt")
	require.NotEqual(t, genA.Generation, genB.Generation)

	c.inbox <- Event{Kind: EventChunk, Text: "late", Model: "gpt", Generation: genA.Generation}
	c.inbox <- Event{Kind: EventChunk, Text: "fresh", Model: "gpt", Generation: genB.Generation}

	require.Eventually(t, func() bool {
		v, _ := c.Session("gpt")
		return v.Buffered == len("fresh")
	}, 2*time.Second, time.Millisecond)

	v, _ := c.Session("gpt")
	require.Equal(t, "fresh", v.Displayed)
	require.False(t, strings.Contains(v.Displayed, "late"))
}

func TestStaleTickerIsIgnored(t *testing.T) {
	c := NewController(silentTransport{}, WithRevealInterval(time.Hour))
	defer c.Close()

	gpt := models.ModelInfo{ID: "gpt", Brand: "gpt"}
	require.NoError(t, c.Start(context.Background(), Submission{ConversationID: 1, Token: "t", Question: "A", Models: []models.ModelInfo{gpt}}))
	v, _ := c.Session("gpt")

	c.inbox <- Event{Kind: EventChunk, Text: "abc", Model: "gpt", Generation: v.Generation}
	c.inbox <- Event{Kind: EventTick, Model: "gpt", Generation: v.Generation, At: time.Now().Add(48 * time.Hour), timer: 9999}
	c.inbox <- Event{Kind: EventChunk, Text: "d", Model: "gpt", Generation: v.Generation}

	require.Eventually(t, func() bool {
		v, _ := c.Session("gpt")
		return v.Buffered == 4
	}, 2*time.Second, time.Millisecond)
	v, _ = c.Session("gpt")
	require.Empty(t, v.Displayed)
}
