package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticValidatorPassThrough(t *testing.T) {
	v := NewStaticValidator(nil)

	id, err := v.Validate(context.Background(), "whatever")
	assert.NoError(t, err)
	assert.Nil(t, id, "nil identity means dev-mode: token becomes the user id")

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticValidatorTokenTable(t *testing.T) {
	v := NewStaticValidator(map[string]Identity{
		"tok-1": {UserID: "u1", Username: "alice"},
	})

	id, err := v.Validate(context.Background(), "tok-1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "alice", id.Username)

	_, err = v.Validate(context.Background(), "tok-2")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorValid(t *testing.T) {
	var gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("X-Admin-Secret")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid":true,"user_id":"u1","username":"alice","is_bot":true}`))
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "secret")
	id, err := v.Validate(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.True(t, id.IsBot)
	assert.Equal(t, "secret", gotSecret)
}

func TestHTTPValidatorInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"valid":false,"error":"expired"}`))
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "")
	_, err := v.Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Empty tokens never hit the wire.
	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidToken},
		{http.StatusForbidden, ErrInvalidToken},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusServiceUnavailable, ErrUnavailable},
		{http.StatusTeapot, ErrUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		v := NewHTTPValidator(srv.URL, "")
		_, err := v.Validate(context.Background(), "tok")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}
}

func TestHTTPValidatorUnreachable(t *testing.T) {
	v := NewHTTPValidator("http://127.0.0.1:1", "")
	_, err := v.Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
}
