package gmailclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// fakeGmail records messages posted to the send endpoint
type fakeGmail struct {
	mu       sync.Mutex
	messages []string
	sentAt   []time.Time
	status   int
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/users/me/messages/send") {
		http.NotFound(w, r)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
		return
	}

	var msg gmail.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.messages = append(f.messages, string(raw))
	f.sentAt = append(f.sentAt, time.Now())
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"id":"msg-1"}`))
}

func newTestClient(t *testing.T, handler http.Handler, interval time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	c := newClient(service, "hire@example.com")
	c.interval = interval
	return c
}

func TestSendEmail_BuildsMessage(t *testing.T) {
	fake := &fakeGmail{}
	c := newTestClient(t, fake, 0)

	err := c.SendEmail(context.Background(), "rower@example.com", "Your boat is ready", "Boat Osprey, battery B2")
	require.NoError(t, err)

	require.Len(t, fake.messages, 1)
	msg := fake.messages[0]
	assert.Contains(t, msg, "From: hire@example.com\r\n")
	assert.Contains(t, msg, "To: rower@example.com\r\n")
	assert.Contains(t, msg, "Subject: Your boat is ready\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nBoat Osprey, battery B2"))
}

func TestSendEmail_Throttles(t *testing.T) {
	fake := &fakeGmail{}
	c := newTestClient(t, fake, 100*time.Millisecond)

	require.NoError(t, c.SendEmail(context.Background(), "a@example.com", "s", "b"))
	require.NoError(t, c.SendEmail(context.Background(), "b@example.com", "s", "b"))

	require.Len(t, fake.sentAt, 2)
	assert.GreaterOrEqual(t, fake.sentAt[1].Sub(fake.sentAt[0]), 90*time.Millisecond)
}

func TestSendEmail_ThrottleRespectsContext(t *testing.T) {
	fake := &fakeGmail{}
	c := newTestClient(t, fake, time.Hour)

	require.NoError(t, c.SendEmail(context.Background(), "a@example.com", "s", "b"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.SendEmail(ctx, "b@example.com", "s", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, fake.messages, 1)
}

func TestSendEmail_APIError(t *testing.T) {
	c := newTestClient(t, &fakeGmail{status: http.StatusInternalServerError}, 0)

	err := c.SendEmail(context.Background(), "a@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}
