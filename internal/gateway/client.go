// Package gateway is the HTTP client for the booking backend's prepayment and
// transaction verification endpoints.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/auth"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
)

const (
	DefaultBaseURL = "https://prod-api.flyo.ai"
	apiVersion     = "v1"
)

// Error kinds returned by the payment API client
var (
	ErrNoCredential           = errors.New("No authentication token found")
	ErrMissingTripID          = errors.New("Trip ID is required")
	ErrIncompleteVerification = errors.New("All payment verification parameters are required")
	ErrPrepaymentRejected     = errors.New("prepayment rejected")
	ErrVerificationRejected   = errors.New("verification rejected")
	ErrRequestFailed          = errors.New("payment api request failed")
)

// Error carries the user-facing message of a failed call. It unwraps to one
// of the sentinel errors above.
type Error struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// TokenFunc returns the bearer credential for the acting user
type TokenFunc func(ctx context.Context) (string, bool)

// Client calls the payment API on behalf of the user in ctx
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenFunc
}

// NewClient creates a Client. token defaults to the credential attached to
// the request context.
func NewClient(baseURL string, httpClient *http.Client, token TokenFunc) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if token == nil {
		token = auth.TokenFrom
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
	}
}

// ExecutePrepayment creates the gateway order for tripID
func (c *Client) ExecutePrepayment(ctx context.Context, tripID string) (*models.PrepaymentResponse, error) {
	if tripID == "" {
		return nil, ErrMissingTripID
	}

	var resp models.PrepaymentResponse
	if err := c.do(ctx, "/prePayment/executePrepayment/"+url.PathEscape(tripID), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Prepayment execution failed"
		}
		return nil, &Error{StatusCode: http.StatusOK, Message: msg, Kind: ErrPrepaymentRejected}
	}
	return &resp, nil
}

// VerifyTransaction confirms the checkout callback server-side and books
func (c *Client) VerifyTransaction(ctx context.Context, req models.VerifyRequest) (*models.VerificationResponse, error) {
	if req.TripID == "" {
		return nil, ErrMissingTripID
	}
	if req.RazorpayPaymentID == "" || req.RazorpayOrderID == "" || req.RazorpaySignature == "" || req.TransactionID == "" {
		return nil, ErrIncompleteVerification
	}

	var resp models.VerificationResponse
	if err := c.do(ctx, "/transactions/verify/"+url.PathEscape(req.TripID), req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &Error{StatusCode: http.StatusOK, Message: "Transaction verification failed", Kind: ErrVerificationRejected}
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, endpoint string, body any, out any) error {
	token, ok := c.token(ctx)
	if !ok {
		return ErrNoCredential
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpointURL := fmt.Sprintf("%s/core/%s%s", c.baseURL, apiVersion, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(res.Body).Decode(&errBody)
		msg := errBody.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", res.StatusCode, http.StatusText(res.StatusCode))
		}
		return &Error{StatusCode: res.StatusCode, Message: msg, Kind: ErrRequestFailed}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
