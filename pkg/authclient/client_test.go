package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokens_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/refresh", r.URL.Path)

		rt, err := r.Cookie("refreshToken")
		require.NoError(t, err)
		assert.Equal(t, "old-refresh", rt.Value)

		_ = json.NewEncoder(w).Encode(RefreshResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			AccessExp:    100,
			RefreshExp:   200,
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/").RefreshTokens(context.Background(), "old-refresh", "old-access")
	require.NoError(t, err)
	assert.Equal(t, "new-access", resp.AccessToken)
	assert.Equal(t, "new-refresh", resp.RefreshToken)
	assert.EqualValues(t, 100, resp.AccessExp)
}

func TestRefreshTokens_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).RefreshTokens(context.Background(), "x", "y")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, ErrRefreshRejected))
}
