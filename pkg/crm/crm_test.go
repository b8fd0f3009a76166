package crm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var fastRetry = RetryConfig(3, time.Millisecond)

func TestNotifier_Deliver(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(httpx.NewClient(0), fastRetry)
	err := n.Deliver(context.Background(), srv.URL, ReplyPayload{BotResponse: "Hi!", Phone: "+15551234567", Email: "a@b.co"})
	require.NoError(t, err)

	body := gjson.ParseBytes(got)
	assert.Equal(t, "Hi!", body.Get("bot_response").String())
	assert.Equal(t, "+15551234567", body.Get("phone").String())
	assert.Equal(t, "a@b.co", body.Get("email").String())
}

func TestNotifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(httpx.NewClient(0), fastRetry)
	require.NoError(t, n.Deliver(context.Background(), srv.URL, ClipPayload{MessageHistory: "You: hi"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifier_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(httpx.NewClient(0), fastRetry)
	err := n.Deliver(context.Background(), srv.URL, ReplyPayload{})
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, CodeDeliveryFailed))
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotifier_EmptyURL(t *testing.T) {
	n := NewNotifier(httpx.NewClient(0), fastRetry)
	assert.NoError(t, n.Deliver(context.Background(), "", ReplyPayload{}))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"(555) 123-4567", "+15551234567"},
		{"1-555-123-4567", "+15551234567"},
		{"+1 555 123 4567", "+15551234567"},
		{"+44 20 7946 0958", "442079460958"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), tt.in)
	}
}

// ghlServer answers lookups for one key: by email when matchEmail, else by phone
func ghlServer(t *testing.T, goodKey string, matchEmail bool) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization")+" "+r.URL.RawQuery)
		if r.URL.Path != "/contacts/lookup" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+goodKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if (matchEmail && q.Get("email") != "") || (!matchEmail && q.Get("phone") == "+15551234567") {
			_, _ = io.WriteString(w, `{"contacts": [{"id": "c1", "locationId": "loc-42"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"contacts": []}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestGHLClient_LocationID_SecondKeyByEmail(t *testing.T) {
	srv, seen := ghlServer(t, "good", true)
	c := NewGHLClient(httpx.NewClient(0), []string{"bad", " ", "good"}, srv.URL, fastRetry)

	id, err := c.LocationID(context.Background(), "lead@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "loc-42", id)
	assert.Len(t, *seen, 2)
}

func TestGHLClient_LocationID_FallsBackToPhone(t *testing.T) {
	srv, seen := ghlServer(t, "good", false)
	c := NewGHLClient(httpx.NewClient(0), []string{"good"}, srv.URL, fastRetry)

	id, err := c.LocationID(context.Background(), "lead@example.com", "(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, "loc-42", id)
	require.Len(t, *seen, 2)
	assert.Contains(t, (*seen)[0], "email=")
	assert.Contains(t, (*seen)[1], "phone=%2B15551234567")
}

func TestGHLClient_LocationID_Errors(t *testing.T) {
	srv, _ := ghlServer(t, "good", true)

	_, err := NewGHLClient(httpx.NewClient(0), []string{"good"}, srv.URL, fastRetry).LocationID(context.Background(), "", "")
	assert.True(t, errx.IsCode(err, CodeMissingContact))

	_, err = NewGHLClient(httpx.NewClient(0), nil, srv.URL, fastRetry).LocationID(context.Background(), "a@b.co", "")
	assert.True(t, errx.IsCode(err, CodeNoAPIKeys))

	_, err = NewGHLClient(httpx.NewClient(0), []string{"bad"}, srv.URL, fastRetry).LocationID(context.Background(), "a@b.co", "")
	assert.True(t, errx.IsCode(err, CodeContactNotFound))
}
