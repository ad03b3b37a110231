package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payment-service/models"
)

const (
	DefaultRazorpayBaseURL = "https://api.razorpay.com"
	DefaultTimeout         = 10 * time.Second
)

// GatewayError is a non-2xx answer from the gateway API.
type GatewayError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("razorpay API error (status %d)", e.StatusCode)
}

// RazorpayConfig holds the credentials and transport settings for the adapter.
type RazorpayConfig struct {
	KeyID   string
	Secret  string
	BaseURL string
	Timeout time.Duration
}

// RazorpayProvider implements PaymentGateway using the Razorpay REST API.
type RazorpayProvider struct {
	keyID      string
	secret     string
	baseURL    string
	httpClient *http.Client
}

// NewRazorpayProvider creates a new RazorpayProvider.
func NewRazorpayProvider(cfg RazorpayConfig) *RazorpayProvider {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultRazorpayBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RazorpayProvider{
		keyID:   cfg.KeyID,
		secret:  cfg.Secret,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ---- Razorpay API response structs ----

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// ---- PaymentGateway implementation ----

// CreateOrder creates a Razorpay order.
func (r *RazorpayProvider) CreateOrder(ctx context.Context, spec models.GatewayOrderSpec) (models.GatewayOrder, error) {
	var order models.GatewayOrder
	if err := r.doRequest(ctx, http.MethodPost, "/v1/orders", spec, &order); err != nil {
		return models.GatewayOrder{}, fmt.Errorf("razorpay CreateOrder: %w", err)
	}
	return order, nil
}

// FetchPayment retrieves a Razorpay payment by id.
func (r *RazorpayProvider) FetchPayment(ctx context.Context, paymentID string) (models.GatewayPayment, error) {
	var payment models.GatewayPayment
	path := "/v1/payments/" + url.PathEscape(paymentID)
	if err := r.doRequest(ctx, http.MethodGet, path, nil, &payment); err != nil {
		return models.GatewayPayment{}, fmt.Errorf("razorpay FetchPayment: %w", err)
	}
	return payment, nil
}

// ---- HTTP helper ----

func (r *RazorpayProvider) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(r.keyID, r.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeGatewayError(resp.StatusCode, respBytes)
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeGatewayError(status int, body []byte) *GatewayError {
	gwErr := &GatewayError{StatusCode: status}
	var envelope razorpayErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil {
		gwErr.Code = envelope.Error.Code
		gwErr.Description = envelope.Error.Description
	}
	return gwErr
}
