//nolint:noctx // Test file uses http.Get for convenience
package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	s := NewCallbackServer(0, state)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func get(t *testing.T, s *CallbackServer, query string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s?%s", s.Port(), CallbackPath, query))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestCallbackServer_PicksPort(t *testing.T) {
	s := startServer(t, "st")
	assert.NotZero(t, s.Port())
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/callback", s.Port()), s.RedirectURI())
}

func TestCallbackServer_ReceivesCode(t *testing.T) {
	s := startServer(t, "st")

	status, body := get(t, s, "state=st&code=abc")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "authorised")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	code, err := s.WaitForCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestCallbackServer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		status  int
		wantErr string
	}{
		{"provider error", "error=access_denied&error_description=nope", http.StatusOK, "access_denied"},
		{"state mismatch", "state=other&code=abc", http.StatusBadRequest, "state mismatch"},
		{"missing code", "state=st", http.StatusBadRequest, "no authorization code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startServer(t, "st")

			status, body := get(t, s, tt.query)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body, "Authorization failed")

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := s.WaitForCode(ctx)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCallbackServer_EscapesDescription(t *testing.T) {
	s := startServer(t, "st")
	_, body := get(t, s, "error=x&error_description=%3Cscript%3E")
	assert.False(t, strings.Contains(body, "<script>"))
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestCallbackServer_WaitTimesOut(t *testing.T) {
	s := startServer(t, "st")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.WaitForCode(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServer_StopWithoutStart(t *testing.T) {
	assert.NoError(t, NewCallbackServer(0, "st").Stop())
}
