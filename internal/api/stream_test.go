package api_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-kosa-skynet/morningstar/internal/api"
	"github.com/team-kosa-skynet/morningstar/internal/devserver"
	"github.com/team-kosa-skynet/morningstar/internal/stream"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

func collect(t *testing.T, events <-chan stream.Event) []stream.Event {
	t.Helper()
	var out []stream.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func TestStreamDeliversChunksThenComplete(t *testing.T) {
	f := newFixture(t, devserver.WithScripts(map[string]devserver.Script{
		"gpt": {Chunks: []string{"Hi", " there"}},
	}))
	f.login(t)
	conv, err := f.client.CreateConversation(context.Background(), "q")
	require.NoError(t, err)

	events, err := f.client.Stream(context.Background(), stream.StreamRequest{
		ConversationID: conv.ID, Brand: "gpt", Message: "hello", Token: f.token.value,
	})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, stream.EventChunk, got[0].Kind)
	assert.Equal(t, "Hi", got[0].Text)
	assert.Equal(t, " there", got[1].Text)
	assert.Equal(t, stream.EventComplete, got[2].Kind)
}

func TestStreamOversizedChunkFails(t *testing.T) {
	f := newFixture(t, devserver.WithScripts(map[string]devserver.Script{
		"gpt": {Chunks: []string{"Hi", strings.Repeat("x", 2*api.MaxEventSize)}},
	}))
	f.login(t)
	conv, err := f.client.CreateConversation(context.Background(), "q")
	require.NoError(t, err)

	events, err := f.client.Stream(context.Background(), stream.StreamRequest{
		ConversationID: conv.ID, Brand: "gpt", Message: "hello", Token: f.token.value,
	})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, "Hi", got[0].Text)
	assert.Equal(t, stream.EventError, got[1].Kind)
	assert.Contains(t, got[1].Err, api.ErrEventTooLarge.Error())
}

func TestStreamErrorEvent(t *testing.T) {
	f := newFixture(t, devserver.WithScripts(map[string]devserver.Script{
		"claude": {Chunks: []string{"Hello"}, Err: "upstream overloaded"},
	}))
	f.login(t)
	conv, err := f.client.CreateConversation(context.Background(), "q")
	require.NoError(t, err)

	events, err := f.client.Stream(context.Background(), stream.StreamRequest{
		ConversationID: conv.ID, Brand: "claude", Message: "hello", Token: f.token.value,
	})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, "Hello", got[0].Text)
	assert.Equal(t, stream.EventError, got[1].Kind)
	assert.Equal(t, "upstream overloaded", got[1].Err)
}

func TestStreamRejectedToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Stream(context.Background(), stream.StreamRequest{
		ConversationID: 1, Brand: "gpt", Message: "hello", Token: "expired",
	})
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 1, f.logout)
}

func TestStreamCancelClosesChannel(t *testing.T) {
	f := newFixture(t,
		devserver.WithChunkDelay(time.Hour),
		devserver.WithScripts(map[string]devserver.Script{"gpt": {Chunks: []string{"never"}}}),
	)
	f.login(t)
	conv, err := f.client.CreateConversation(context.Background(), "q")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := f.client.StreamChat().Stream(ctx, stream.StreamRequest{
		ConversationID: conv.ID, Brand: "gpt", Message: "hello", Token: f.token.value,
	})
	require.NoError(t, err)

	cancel()
	assert.Empty(t, collect(t, events))
}

func TestControllerOverSSE(t *testing.T) {
	f := newFixture(t, devserver.WithScripts(map[string]devserver.Script{
		"gpt":    {Chunks: []string{"Hi", " there"}},
		"claude": {Chunks: []string{"Hello"}, Err: "upstream overloaded"},
	}))
	f.login(t)
	conv, err := f.client.CreateConversation(context.Background(), "q")
	require.NoError(t, err)

	settled := make(chan stream.Generation, 1)
	ctrl := stream.NewController(f.client.StreamChat(),
		stream.WithRevealInterval(time.Millisecond),
		stream.WithSettledHook(func(g stream.Generation) { settled <- g }),
	)
	defer ctrl.Close()

	err = ctrl.Start(context.Background(), stream.Submission{
		ConversationID: conv.ID,
		Token:          f.token.value,
		Question:       "hello",
		Models: []models.ModelInfo{
			{ID: "gpt", Brand: "gpt", Name: "GPT"},
			{ID: "claude", Brand: "claude", Name: "Claude"},
		},
	})
	require.NoError(t, err)

	select {
	case g := <-settled:
		require.Len(t, g.Sessions, 2)
		assert.Equal(t, stream.StateDone, g.Sessions[0].State)
		assert.Equal(t, "Hi there", g.Sessions[0].Displayed)
		assert.Equal(t, stream.StateErrored, g.Sessions[1].State)
		assert.Equal(t, "Hello", g.Sessions[1].Displayed)
	case <-time.After(5 * time.Second):
		t.Fatal("generation did not settle")
	}
}
