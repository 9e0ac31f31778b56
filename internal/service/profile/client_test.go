package profile_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	"github.com/andyoknen/p2p-bastyon-backend/internal/service/profile"
)

type rpcCall struct {
	Method     string                 `json:"method"`
	Parameters map[string]interface{} `json:"parameters"`
}

func newProxyServer(t *testing.T, handler func(call rpcCall, w http.ResponseWriter)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rpc", r.URL.Path)

		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		handler(call, w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetUserProfile(t *testing.T) {
	srv := newProxyServer(t, func(call rpcCall, w http.ResponseWriter) {
		require.Equal(t, "getuserprofile", call.Method)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"address": "addr-1", "name": "alice", "i": "avatar-1"},
			},
		})
	})

	client := profile.NewClient(srv.URL, nil)
	got, err := client.GetUserProfile(context.Background(), "addr-1")
	require.NoError(t, err)
	require.Equal(t, domain.Profile{Name: "alice", Avatar: "avatar-1"}, got)
}

func TestClient_GetUserProfile_NoMatch(t *testing.T) {
	srv := newProxyServer(t, func(call rpcCall, w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	})

	client := profile.NewClient(srv.URL, nil)
	_, err := client.GetUserProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrProfileLookup)
}

func TestClient_GetUserProfile_Unavailable(t *testing.T) {
	srv := newProxyServer(t, func(call rpcCall, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client := profile.NewClient(srv.URL, nil)
	_, err := client.GetUserProfile(context.Background(), "addr-1")
	require.ErrorIs(t, err, domain.ErrProfileLookup)
}

func TestClient_VerifySignature(t *testing.T) {
	srv := newProxyServer(t, func(call rpcCall, w http.ResponseWriter) {
		require.Equal(t, "checksignature", call.Method)
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": true})
	})

	client := profile.NewClient(srv.URL, nil)
	addr, err := client.VerifySignature(context.Background(), domain.Signature{
		Address:   "addr-1",
		Signature: "sig-bytes",
	})
	require.NoError(t, err)
	require.Equal(t, "addr-1", addr)
}

func TestClient_VerifySignature_Invalid(t *testing.T) {
	srv := newProxyServer(t, func(call rpcCall, w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": false})
	})

	client := profile.NewClient(srv.URL, nil)
	_, err := client.VerifySignature(context.Background(), domain.Signature{
		Address:   "addr-1",
		Signature: "bad",
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClient_VerifySignature_EmptySignature(t *testing.T) {
	client := profile.NewClient("http://unused", nil)
	_, err := client.VerifySignature(context.Background(), domain.Signature{})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClient_GetNodeInfo(t *testing.T) {
	srv := newProxyServer(t, func(call rpcCall, w http.ResponseWriter) {
		require.Equal(t, "getnodeinfo", call.Method)
		_, _ = w.Write([]byte(`{"version":"0.22","lastblock":{"height":100}}`))
	})

	client := profile.NewClient(srv.URL, nil)
	raw, err := client.GetNodeInfo(context.Background())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "0.22", decoded["version"])
}

func TestMockService(t *testing.T) {
	mock := profile.NewMockService()

	got, err := mock.GetUserProfile(context.Background(), "any")
	require.NoError(t, err)
	require.Equal(t, "dev-user", got.Name)

	addr, err := mock.VerifySignature(context.Background(), domain.Signature{Address: "addr-1", Signature: "s"})
	require.NoError(t, err)
	require.Equal(t, "addr-1", addr)

	mock.ProfileErr = errors.New("down")
	_, err = mock.GetUserProfile(context.Background(), "any")
	require.Error(t, err)

	require.Equal(t, 2, mock.ProfileCalls)
	require.Equal(t, 1, mock.VerifyCalls)
}
