package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnreachable wraps network-level failures talking to Paystack.
// Callers may safely let the user retry: both initialize (with a fresh
// reference) and verify are idempotent on the gateway side.
var ErrUnreachable = errors.New("paystack unreachable")

// Client is the outbound gateway contract. All money decisions are made
// from Verify results only; redirect query parameters are never trusted.
type Client interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

type InitializeRequest struct {
	Email       string
	AmountKobo  int64
	Reference   string
	CallbackURL string
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult carries the gateway's authoritative view of a transaction.
// AmountKobo is the canonical charged amount and must be cross-checked
// against the locally expected total before any settlement.
type VerifyResult struct {
	Success    bool
	AmountKobo int64
	Reference  string
	PaidAt     time.Time
}

type httpClient struct {
	client    *http.Client
	baseURL   string
	secretKey string
}

// NewClient builds the real Paystack REST client.
func NewClient(baseURL, secretKey string) Client {
	return &httpClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   baseURL,
		secretKey: secretKey,
	}
}

type initializePayload struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // kobo
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (c *httpClient) Initialize(ctx context.Context, r InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(initializePayload{
		Email:       r.Email,
		Amount:      r.AmountKobo,
		Reference:   r.Reference,
		CallbackURL: r.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal initialize payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paystack initialize error %d: %s", resp.StatusCode, string(b))
	}

	var result initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	if !result.Status {
		return nil, fmt.Errorf("paystack initialize rejected: %s", result.Message)
	}

	return &InitializeResult{
		AuthorizationURL: result.Data.AuthorizationURL,
		AccessCode:       result.Data.AccessCode,
		Reference:        result.Data.Reference,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"` // "success", "failed", "abandoned"
		Amount    int64  `json:"amount"` // kobo
		Reference string `json:"reference"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

func (c *httpClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paystack verify error %d: %s", resp.StatusCode, string(b))
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	out := &VerifyResult{
		Success:    result.Status && result.Data.Status == "success",
		AmountKobo: result.Data.Amount,
		Reference:  result.Data.Reference,
	}
	if out.Success && result.Data.PaidAt != "" {
		// Paystack returns RFC3339 timestamps; a parse failure is not
		// worth failing the verification for.
		if t, err := time.Parse(time.RFC3339, result.Data.PaidAt); err == nil {
			out.PaidAt = t
		}
	}
	return out, nil
}
