package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:     url,
		SecretKey:   "sk_test",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}, zerolog.Nop())
}

func TestInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var req InitializeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(15000), req.Amount)
		assert.Equal(t, "VCH-1", req.Reference)

		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://checkout/abc","access_code":"abc","reference":"VCH-1"}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Initialize(context.Background(), InitializeRequest{Email: "a@b.co", Amount: 15000, Reference: "VCH-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout/abc", res.AuthorizationURL)
	assert.Equal(t, "abc", res.AccessCode)
}

func TestVerifyRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "/transaction/verify/VCH-2", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"reference":"VCH-2","status":"success","amount":15000,"currency":"GHS"}}`))
	}))
	defer srv.Close()

	tx, err := newTestClient(srv.URL).Verify(context.Background(), "VCH-2")
	require.NoError(t, err)
	assert.True(t, tx.Successful())
	assert.Equal(t, int64(15000), tx.Amount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestVerifyGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Verify(context.Background(), "VCH-3")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Verify(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"VCH-1"}}`)
	sig := Sign("sk_test", body)

	assert.True(t, VerifySignature("sk_test", body, sig))
	assert.False(t, VerifySignature("sk_other", body, sig))
	assert.False(t, VerifySignature("sk_test", append(body, ' '), sig))
	assert.False(t, VerifySignature("sk_test", body, "not-hex"))
	assert.False(t, VerifySignature("sk_test", body, ""))

	ev, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, ev.Event)
	assert.Equal(t, "VCH-1", ev.Data.Reference)
}
