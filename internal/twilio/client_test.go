package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient("AC123", "token", "+15550000", Options{
		BaseURL:         srv.URL,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	})
	return c, &calls
}

func TestSendSMSPostsForm(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234", r.PostForm.Get("To"))
		assert.Equal(t, "+15550000", r.PostForm.Get("From"))
		assert.Equal(t, "code 123456", r.PostForm.Get("Body"))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.SendSMS(context.Background(), "+15551234", "code 123456"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestSendSMSRetriesServerErrors(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.SendSMS(context.Background(), "+15551234", "hi")
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "first attempt plus two retries")
}

func TestSendSMSDoesNotRetryClientErrors(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid To"}`))
	})

	err := c.SendSMS(context.Background(), "+15551234", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid To")
	assert.EqualValues(t, 1, calls.Load())
}
