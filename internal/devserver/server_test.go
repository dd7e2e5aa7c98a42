package devserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuedTokenValidates(t *testing.T) {
	s := New()
	token, err := s.IssueToken(1, DemoEmail)
	require.NoError(t, err)

	claims, err := s.validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.MemberID)
	assert.Equal(t, DemoEmail, claims.Email)

	other := New(WithSecret("another"))
	_, err = other.validate(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	s := New(WithTokenTTL(-time.Minute))
	token, err := s.IssueToken(1, DemoEmail)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamFraming(t *testing.T) {
	s := New(WithChunkDelay(0), WithScripts(map[string]Script{"gpt": {Chunks: []string{"a\nb", " c"}}}))
	token, err := s.IssueToken(1, DemoEmail)
	require.NoError(t, err)
	s.conversations[99] = &conversation{owner: 1}
	s.conversations[99].ID = 99

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/99/stream?brand=gpt", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"event: chunk\ndata: a\ndata: b\n\nevent: chunk\ndata:  c\n\nevent: complete\ndata: \n\n",
		rec.Body.String())
	require.Len(t, s.conversations[99].Turns, 2)
	assert.Equal(t, "a\nb c", s.conversations[99].Turns[1].Content)
}

func TestWriteEventFoldsCarriageReturns(t *testing.T) {
	var buf strings.Builder
	writeEvent(&buf, "chunk", "a\r\nb\rc")
	assert.Equal(t, "event: chunk\ndata: a\ndata: b\ndata: c\n\n", buf.String())
}

func TestUnknownBrand(t *testing.T) {
	s := New()
	token, err := s.IssueToken(1, DemoEmail)
	require.NoError(t, err)
	s.conversations[5] = &conversation{owner: 1}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/5/stream?brand=nope", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunStopsWithContext(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New().Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/v1/news")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
