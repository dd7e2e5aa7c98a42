package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-kosa-skynet/morningstar/internal/db"
	"github.com/team-kosa-skynet/morningstar/internal/stream"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	conn, err := db.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return NewRecorder(conn, WithNow(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
}

func generation(id, question string) stream.Generation {
	return stream.Generation{
		ID:             id,
		ConversationID: 42,
		Question:       question,
		Sessions: []stream.SessionView{
			{Model: models.ModelInfo{ID: "gpt", Name: "GPT", Brand: "gpt"}, State: stream.StateDone, Displayed: "Hi there", Buffered: 8},
			{Model: models.ModelInfo{ID: "claude", Name: "Claude", Brand: "claude"}, State: stream.StateErrored, Displayed: "Hello", Buffered: 5, Err: "overloaded"},
		},
	}
}

func TestRecordThenGet(t *testing.T) {
	r := newRecorder(t)
	require.True(t, r.Record(generation("0b6a4c1e-aaaa", "hello?")))
	r.Close()

	e, err := r.Get(context.Background(), "0b6a")
	require.NoError(t, err)
	assert.Equal(t, "0b6a4c1e-aaaa", e.ID)
	assert.Equal(t, int64(42), e.ConversationID)
	assert.Equal(t, "hello?", e.Question)
	require.Len(t, e.Answers, 2)
	assert.Equal(t, Answer{ModelID: "gpt", ModelName: "GPT", Brand: "gpt", State: "done", Content: "Hi there"}, e.Answers[0])
	assert.Equal(t, "errored", e.Answers[1].State)
	assert.Equal(t, "overloaded", e.Answers[1].Err)
}

func TestListNewestFirst(t *testing.T) {
	r := newRecorder(t)
	require.True(t, r.Record(generation("first", "one")))
	require.True(t, r.Record(generation("second", "two")))
	r.Close()

	list, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)
	assert.Equal(t, "first", list[1].ID)
	assert.Empty(t, list[0].Answers)

	list, err = r.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetErrors(t *testing.T) {
	r := newRecorder(t)
	require.True(t, r.Record(generation("abc-1", "one")))
	require.True(t, r.Record(generation("abc-2", "two")))
	r.Close()

	_, err := r.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = r.Get(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Get(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	r := newRecorder(t)
	r.Close()
	r.Close()
	assert.False(t, r.Record(generation("late", "q")))
}

func TestEmptyCancelledGenerationSkipped(t *testing.T) {
	r := newRecorder(t)
	defer r.Close()

	g := stream.Generation{ID: "x", Sessions: []stream.SessionView{
		{Model: models.ModelInfo{ID: "gpt"}, State: stream.StateCancelled},
	}}
	assert.False(t, r.Record(g))
}

func TestCancelAllDropsPendingWrites(t *testing.T) {
	conn, err := db.Open("")
	require.NoError(t, err)
	defer conn.Close()
	r := NewRecorder(conn)

	// the store has a single connection; holding it stalls the writer
	held, err := conn.Conn(context.Background())
	require.NoError(t, err)

	require.True(t, r.Record(generation("a", "one")))
	require.True(t, r.Record(generation("b", "two")))
	r.CancelAll()
	require.NoError(t, held.Close())

	require.True(t, r.Record(generation("c", "three")))
	r.Close()

	list, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].ID)
}

func TestCancelAllWithoutWritesIsSafe(t *testing.T) {
	r := newRecorder(t)
	r.CancelAll()
	r.Close()
}
