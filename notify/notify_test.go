package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xordon/callflow/engine"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		APIKey:  "secret",
		Timeout: 5 * time.Second,
	}
}

func TestWebhookSend(t *testing.T) {
	var got struct {
		method  string
		headers http.Header
		body    map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhooks(testConfig(""))
	err := w.Send(context.Background(), srv.URL, "POST",
		map[string]string{"X-Custom": "abc"},
		map[string]any{"call_sid": "CA1", "caller": "+15551234567"})

	require.NoError(t, err)
	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "abc", got.headers.Get("X-Custom"))
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "CA1", got.body["call_sid"])
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhooks(testConfig(""))
	err := w.Send(context.Background(), srv.URL, "POST", nil, map[string]any{})
	assert.ErrorContains(t, err, "status 502")
}

func TestAPICalls(t *testing.T) {
	type received struct {
		path string
		auth string
		body map[string]any
	}
	var calls []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, received{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	api := NewAPI(testConfig(srv.URL))
	ctx := context.Background()

	require.NoError(t, api.SendSMS(ctx, "t1", "+15550001", "+15550002", "hello"))
	require.NoError(t, api.SendEmail(ctx, "t1", "a@example.com", "subject", "body"))
	require.NoError(t, api.TagCall(ctx, "t1", "CA1", "support"))
	require.NoError(t, api.CreateTicket(ctx, "t1", engine.Ticket{
		Subject: "Call from +15550002", Priority: "medium", Source: "phone",
	}))
	require.NoError(t, api.UpdateContactStage(ctx, "t1", "+15550002", "qualified"))
	require.NoError(t, api.RequestCallback(ctx, "t1", "CA1", "+15550002"))
	require.NoError(t, api.RecordResponse(ctx, "t1", "CA1", "survey-1", "5"))

	require.Len(t, calls, 7)
	assert.Equal(t, "/internal/sms", calls[0].path)
	assert.Equal(t, "Bearer secret", calls[0].auth)
	assert.Equal(t, "hello", calls[0].body["body"])
	assert.Equal(t, "/internal/email", calls[1].path)
	assert.Equal(t, "/internal/calls/CA1/tags", calls[2].path)
	assert.Equal(t, "support", calls[2].body["tag"])
	assert.Equal(t, "/internal/tickets", calls[3].path)
	assert.Equal(t, "medium", calls[3].body["priority"])
	assert.Equal(t, "/internal/contacts/stage", calls[4].path)
	assert.Equal(t, "/internal/callbacks", calls[5].path)
	assert.Equal(t, "/internal/surveys", calls[6].path)
	assert.Equal(t, "5", calls[6].body["digits"])
}

func TestAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	api := NewAPI(testConfig(srv.URL))
	err := api.TagCall(context.Background(), "t1", "CA1", "tag")
	assert.ErrorContains(t, err, "status 403")
}
