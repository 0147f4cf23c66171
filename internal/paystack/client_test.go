package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "buyer@example.com", payload["email"])
		assert.Equal(t, float64(500000), payload["amount"])
		assert.Equal(t, "stl-ref-1", payload["reference"])

		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "stl-ref-1",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_abc")
	res, err := client.Initialize(context.Background(), InitializeRequest{
		Email:       "buyer@example.com",
		AmountKobo:  500000,
		Reference:   "stl-ref-1",
		CallbackURL: "https://store.example/payments/callback",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.paystack.com/abc123", res.AuthorizationURL)
	assert.Equal(t, "stl-ref-1", res.Reference)
}

func TestInitializeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_abc")
	_, err := client.Initialize(context.Background(), InitializeRequest{Reference: "stl-ref-1"})
	assert.ErrorContains(t, err, "Invalid key")
}

func TestVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/stl-ref-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"status":    "success",
				"amount":    500000,
				"reference": "stl-ref-1",
				"paid_at":   "2026-03-15T12:30:00Z",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_abc")
	res, err := client.Verify(context.Background(), "stl-ref-1")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, int64(500000), res.AmountKobo)
	assert.Equal(t, "stl-ref-1", res.Reference)
	assert.Equal(t, 2026, res.PaidAt.Year())
}

func TestVerifyFailedTransaction(t *testing.T) {
	// HTTP 200 with a non-success transaction status: the call worked, the
	// payment did not.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"status":    "abandoned",
				"amount":    500000,
				"reference": "stl-ref-1",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_abc")
	res, err := client.Verify(context.Background(), "stl-ref-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestVerifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "sk_test_abc")
	_, err := client.Verify(context.Background(), "stl-ref-1")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_abc")
	_, err := client.Verify(context.Background(), "stl-ref-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnreachable)
}
