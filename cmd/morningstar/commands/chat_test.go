package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-kosa-skynet/morningstar/internal/db"
	"github.com/team-kosa-skynet/morningstar/internal/history"
	"github.com/team-kosa-skynet/morningstar/internal/stream"
	"github.com/team-kosa-skynet/morningstar/internal/stream/streamtest"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

func TestAbortDropsUnwrittenHistory(t *testing.T) {
	conn, err := db.Open("")
	require.NoError(t, err)
	defer conn.Close()

	// keep the writer waiting on the only connection
	held, err := conn.Conn(context.Background())
	require.NoError(t, err)

	recorder := history.NewRecorder(conn)
	transport := streamtest.NewTransport()
	ctrl := stream.NewController(transport,
		stream.WithRevealInterval(0),
		stream.WithSettledHook(func(g stream.Generation) { recorder.Record(g) }),
	)
	session := &chatSession{ctrl: ctrl, recorder: recorder, conn: conn}

	require.NoError(t, ctrl.Start(context.Background(), stream.Submission{
		ConversationID: 1,
		Token:          "token",
		Question:       "hello?",
		Models:         []models.ModelInfo{{ID: "gpt", Name: "GPT", Brand: "gpt"}},
	}))
	require.True(t, transport.Latest("gpt").Chunk("partial"))
	require.Eventually(t, func() bool {
		v, ok := ctrl.Session("gpt")
		return ok && v.Displayed == "partial"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, session.abort())
	v, _ := ctrl.Session("gpt")
	assert.Equal(t, stream.StateCancelled, v.State)

	require.NoError(t, held.Close())
	ctrl.Close()
	recorder.Close()

	list, err := recorder.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
