package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPVerifier checks orders against the platform order service.
type HTTPVerifier struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPVerifier(baseURL, token string) *HTTPVerifier {
	return &HTTPVerifier{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, merchantID, orderID uint) error {
	u := fmt.Sprintf("%s/api/v1/internal/merchants/%d/orders/%d", v.BaseURL, merchantID, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", v.Token)

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call order service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("order service returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Order struct {
			ID         uint `json:"id"`
			MerchantID uint `json:"merchant_id"`
		} `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode order service response: %w", err)
	}
	if payload.Order.ID != orderID || payload.Order.MerchantID != merchantID {
		return ErrNotFound
	}
	return nil
}
