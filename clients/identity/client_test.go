package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestVerifyTeacherToken(t *testing.T) {
	client := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, verifyTeacherTokenEndpoint, r.URL.Path)
		assert.Equal(t, "Bearer t-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid": true, "user": {"id": 7}}`))
	})

	verification, err := client.VerifyTeacherToken(context.Background(), "t-token")
	require.NoError(t, err)
	assert.True(t, verification.Valid)
	assert.JSONEq(t, `{"id": 7}`, string(verification.User))
}

func TestVerifyStudentToken(t *testing.T) {
	client := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, verifyStudentTokenEndpoint, r.URL.Path)
		w.Write([]byte(`{"valid": true}`))
	})

	verification, err := client.VerifyStudentToken(context.Background(), "s-token")
	require.NoError(t, err)
	assert.True(t, verification.Valid)
}

func TestVerifyRejectionIsVerdict(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		verification, err := client.VerifyTeacherToken(context.Background(), "rejected")
		require.NoError(t, err, "status %d", status)
		assert.False(t, verification.Valid)
	}
}

func TestVerifyBackendFailure(t *testing.T) {
	client := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.VerifyTeacherToken(context.Background(), "any")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestVerifyMalformedResponse(t *testing.T) {
	client := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := client.VerifyTeacherToken(context.Background(), "any")
	require.Error(t, err)
}
