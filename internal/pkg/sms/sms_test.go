package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSenderPostsJSON(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSender(Config{Enabled: true, URL: srv.URL, APIKey: "key", SenderID: "UNI"}, zerolog.Nop())
	require.NoError(t, s.Send(context.Background(), "+233200000000", "Congratulations"))
	assert.Equal(t, sendRequest{To: "+233200000000", From: "UNI", Message: "Congratulations"}, got)
}

func TestHTTPSenderReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewHTTPSender(Config{URL: srv.URL}, zerolog.Nop())
	assert.Error(t, s.Send(context.Background(), "+233200000000", "hi"))
	assert.ErrorIs(t, s.Send(context.Background(), " ", "hi"), ErrNoRecipient)
}

func TestDisabledSenderLogsOnly(t *testing.T) {
	s := NewSender(Config{}, zerolog.Nop())
	_, ok := s.(*LogSender)
	assert.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), "+233200000000", "hi"))
}
