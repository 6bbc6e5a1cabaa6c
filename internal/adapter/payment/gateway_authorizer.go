package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const authorizationsPath = "/v1/authorizations"

type authorizationRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type authorizationResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// GatewayAuthorizer asks a remote payment gateway over HTTP.
type GatewayAuthorizer struct {
	baseURL  string
	currency string
	client   *http.Client
}

func NewGatewayAuthorizer(baseURL string, timeout time.Duration) *GatewayAuthorizer {
	return &GatewayAuthorizer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: "USD",
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *GatewayAuthorizer) Authorize(ctx context.Context, amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, fmt.Errorf("negative amount %s", amount)
	}

	body, err := json.Marshal(authorizationRequest{Amount: amount, Currency: g.currency})
	if err != nil {
		return false, fmt.Errorf("encode authorization: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+authorizationsPath, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build authorization request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out authorizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode authorization: %w", err)
	}

	if !out.Approved {
		log.Info().Str("amount", amount.StringFixed(2)).Str("reason", out.Reason).Msg("payment gateway declined")
	}
	return out.Approved, nil
}
