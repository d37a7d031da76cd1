package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteverify(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "s3cret", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("response") {
		case "good":
			_, _ = w.Write([]byte(`{"success":true,"hostname":"example.com"}`))
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerify(t *testing.T) {
	srv := siteverify(t)
	v := New("s3cret", srv.URL, srv.Client())
	ctx := context.Background()

	assert.NoError(t, v.Verify(ctx, "good", "1.2.3.4"))
	assert.ErrorIs(t, v.Verify(ctx, "bad", ""), ErrRejected)
	assert.ErrorIs(t, v.Verify(ctx, "", ""), ErrMissingToken)

	err := v.Verify(ctx, "broken", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestDisabledPassesEverything(t *testing.T) {
	v := New("", "http://127.0.0.1:1", nil)
	assert.False(t, v.Enabled())
	assert.NoError(t, v.Verify(context.Background(), "", ""))
}
