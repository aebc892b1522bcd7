package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authkeeper/internal/common"
)

func newAPIServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestClient_Login(t *testing.T) {
	c := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@x.com", req["email"])
		assert.Equal(t, "pw", req["password"])

		json.NewEncoder(w).Encode(map[string]string{
			"accessToken": "acc", "refreshToken": "ref",
		})
	})

	pair, err := c.Login(context.Background(), "a@x.com", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "acc", pair.AccessToken)
	assert.Equal(t, "ref", pair.RefreshToken)
}

func TestClient_Login_Unauthorized(t *testing.T) {
	c := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	})

	_, err := c.Login(context.Background(), "a@x.com", []byte("wrong"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestClient_Refresh(t *testing.T) {
	c := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/refresh", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "old", req["refreshToken"])

		json.NewEncoder(w).Encode(map[string]string{
			"accessToken": "acc2", "refreshToken": "ref2",
		})
	})

	pair, err := c.Refresh(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "ref2", pair.RefreshToken)
}

func TestClient_Whoami_SendsBearerToken(t *testing.T) {
	c := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/me", r.URL.Path)
		require.Equal(t, "Bearer acc", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "name": "a", "email": "a@x.com",
		})
	})

	identity, err := c.Whoami(context.Background(), "acc")
	require.NoError(t, err)
	assert.Equal(t, int64(7), identity.ID)
	assert.Equal(t, "a@x.com", identity.Email)
}

func TestClient_ActiveSession_NotFound(t *testing.T) {
	c := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "no active session"})
	})

	_, err := c.ActiveSession(context.Background(), "acc")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestClient_Logout(t *testing.T) {
	var gotToken string
	c := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotToken = req["refreshToken"]
		json.NewEncoder(w).Encode(map[string]string{"message": "logged out successfully"})
	})

	require.NoError(t, c.Logout(context.Background(), "ref"))
	assert.Equal(t, "ref", gotToken)
}

func TestClient_ServerUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")

	_, err := c.Login(context.Background(), "a@x.com", []byte("pw"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
