package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// SnapClient talks to the payment gateway's hosted-checkout token API. One
// request per checkout submission, no automatic retry: a retry here could
// double-charge the buyer.
type SnapClient struct {
	BaseURL   string
	ServerKey string
	Client    *http.Client
}

func NewSnapClient() *SnapClient {
	base := os.Getenv("SNAP_BASE_URL")
	if base == "" {
		base = "https://app.sandbox.midtrans.com"
	}

	return &SnapClient{
		BaseURL:   strings.TrimRight(base, "/"),
		ServerKey: os.Getenv("SNAP_SERVER_KEY"),
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type TokenRequest struct {
	OrderID     string // payment-group id, the gateway's external reference
	GrossAmount int64
	Name        string
	Email       string
	Phone       string
}

type snapTransactionPayload struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		FirstName string `json:"first_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"customer_details"`
}

type snapTokenResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateTransaction requests a snap token for the whole payment group.
func (s *SnapClient) CreateTransaction(ctx context.Context, req TokenRequest) (string, error) {
	var payload snapTransactionPayload
	payload.TransactionDetails.OrderID = req.OrderID
	payload.TransactionDetails.GrossAmount = req.GrossAmount
	payload.CustomerDetails.FirstName = req.Name
	payload.CustomerDetails.Email = req.Email
	payload.CustomerDetails.Phone = req.Phone

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(s.ServerKey, "")

	resp, err := s.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("snap request failed: %w", err)
	}
	defer resp.Body.Close()

	var out snapTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("snap response decode failed: %w", err)
	}

	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		if len(out.ErrorMessages) > 0 {
			return "", fmt.Errorf("snap rejected transaction: %s", strings.Join(out.ErrorMessages, "; "))
		}
		return "", fmt.Errorf("snap returned status %d", resp.StatusCode)
	}

	if out.Token == "" {
		return "", fmt.Errorf("snap returned empty token for order %s", req.OrderID)
	}

	return out.Token, nil
}
