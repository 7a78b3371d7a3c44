package proxmox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		Host:       srv.URL,
		User:       "api@pam",
		TokenName:  "mcp",
		TokenValue: "secret",
	})
	require.NoError(t, err)
	// httptest embeds its own port in the URL.
	client.baseURL = srv.URL + "/api2/json"
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{Host: "pve.local"})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{
		Host:       "pve.local",
		User:       "root",
		TokenName:  "mcp",
		TokenValue: "secret",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user@realm")
}

func TestClientAuthHeader(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data": []}`))
	})

	_, err := client.Get(context.Background(), "/nodes")
	require.NoError(t, err)
	assert.Equal(t, "PVEAPIToken=api@pam!mcp=secret", gotAuth)
}

func TestClientUnwrapsDataEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"node": "pve1"}}`))
	})

	data, err := client.Get(context.Background(), "/nodes/pve1/status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"node": "pve1"}`, string(data))
}

func TestClientPostSendsFormBody(t *testing.T) {
	var gotContentType, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotBody = r.PostForm.Encode()
		w.Write([]byte(`{"data": "UPID:pve1:0:0:0:qmstart:100:api@pam!mcp:"}`))
	})

	form := url.Values{}
	form.Set("newid", "101")
	form.Set("full", "1")
	_, err := client.Post(context.Background(), "/nodes/pve1/qemu/100/clone", form)
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "full=1&newid=101", gotBody)
}

func TestClientAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("storage does not exist"))
	})

	_, err := client.Get(context.Background(), "/nodes/pve1/storage/bogus/content")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "storage does not exist")
}

func TestClientAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Get(context.Background(), "/nodes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication error")
}

func TestClientEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Get(context.Background(), "/nodes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response body")
}
