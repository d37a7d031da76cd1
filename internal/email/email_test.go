package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasing-site-api/internal/config"
)

func TestSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<abc@smtp>"}`))
	}))
	defer srv.Close()

	c := New(config.Email{APIKey: "key-1", BaseURL: srv.URL + "/", SenderEmail: "hi@site.test", SenderName: "Site"}, srv.Client())
	id, err := c.Send(context.Background(), Message{
		To:         []Address{{Email: "ada@test.com", Name: "Ada"}},
		TemplateID: 7,
		Params:     map[string]any{"name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<abc@smtp>", id)

	assert.EqualValues(t, 7, got["templateId"])
	assert.Equal(t, map[string]any{"email": "hi@site.test", "name": "Site"}, got["sender"])
	assert.Equal(t, map[string]any{"name": "Ada"}, got["params"])
}

func TestSendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(config.Email{APIKey: "bad", BaseURL: srv.URL}, srv.Client())
	_, err := c.Send(context.Background(), Message{To: []Address{{Email: "a@b.c"}}, TemplateID: 1})
	assert.ErrorContains(t, err, "status 401")

	_, err = c.Send(context.Background(), Message{TemplateID: 1})
	assert.Error(t, err)

	_, err = New(config.Email{}, nil).Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrDisabled)
}
