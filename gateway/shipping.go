package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ShippingClient queries the courier rate aggregator for a cost quote.
type ShippingClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewShippingClient() *ShippingClient {
	base := os.Getenv("SHIPPING_BASE_URL")
	if base == "" {
		base = "https://api.rajaongkir.com/starter"
	}

	return &ShippingClient{
		BaseURL: strings.TrimRight(base, "/"),
		APIKey:  os.Getenv("SHIPPING_API_KEY"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type CostRequest struct {
	Origin      uint   // origin city id
	Destination uint   // destination city id
	Weight      int    // grams
	Courier     string // jne | tiki | pos
}

type CostResult struct {
	Service     string `json:"service"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	ETD         string `json:"etd"` // estimated days, e.g. "2-3"
}

type rateResponse struct {
	Rajaongkir struct {
		Status struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"status"`
		Results []struct {
			Code  string `json:"code"`
			Costs []struct {
				Service     string `json:"service"`
				Description string `json:"description"`
				Cost        []struct {
					Value int64  `json:"value"`
					ETD   string `json:"etd"`
				} `json:"cost"`
			} `json:"costs"`
		} `json:"results"`
	} `json:"rajaongkir"`
}

// Cost returns the available services and rates for one origin/destination/
// weight/courier combination.
func (s *ShippingClient) Cost(ctx context.Context, req CostRequest) ([]CostResult, error) {
	if req.Origin == 0 || req.Destination == 0 || req.Weight <= 0 || req.Courier == "" {
		return nil, fmt.Errorf("incomplete rate request: origin=%d destination=%d weight=%d courier=%q",
			req.Origin, req.Destination, req.Weight, req.Courier)
	}

	form := url.Values{}
	form.Set("origin", strconv.FormatUint(uint64(req.Origin), 10))
	form.Set("destination", strconv.FormatUint(uint64(req.Destination), 10))
	form.Set("weight", strconv.Itoa(req.Weight))
	form.Set("courier", req.Courier)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+"/cost", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("key", s.APIKey)

	resp, err := s.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	var out rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("rate response decode failed: %w", err)
	}

	if out.Rajaongkir.Status.Code != 200 {
		return nil, fmt.Errorf("rate lookup rejected: %s", out.Rajaongkir.Status.Description)
	}

	var results []CostResult
	for _, r := range out.Rajaongkir.Results {
		for _, c := range r.Costs {
			if len(c.Cost) == 0 {
				continue
			}
			results = append(results, CostResult{
				Service:     c.Service,
				Description: c.Description,
				Cost:        c.Cost[0].Value,
				ETD:         c.Cost[0].ETD,
			})
		}
	}

	return results, nil
}
