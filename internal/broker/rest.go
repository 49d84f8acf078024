package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RESTClient submits bracket orders over the brokerage REST API. Auth follows
// the appId:token header scheme the data socket uses.
type RESTClient struct {
	Base  string
	AppID string
	Token string
	Http  *http.Client
	Log   zerolog.Logger
}

// NewRESTClient builds a client with a bounded request timeout so a slow
// broker can never stall the caller indefinitely.
func NewRESTClient(base, appID, token string, log zerolog.Logger) *RESTClient {
	return &RESTClient{
		Base:  base,
		AppID: appID,
		Token: token,
		Http:  &http.Client{Timeout: 8 * time.Second},
		Log:   log,
	}
}

type orderPayload struct {
	Symbol       string  `json:"symbol"`
	Qty          int     `json:"qty"`
	Type         int     `json:"type"`
	Side         int     `json:"side"`
	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	TrailingStop float64 `json:"stopLossTrailing"`
	DisclosedQty int     `json:"disclosedQty"`
	Validity     string  `json:"validity"`
	OfflineOrder bool    `json:"offlineOrder"`
	OrderTag     string  `json:"orderTag"`
}

type orderResponse struct {
	Status  string `json:"s"`
	Code    int    `json:"code"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// PlaceOrder posts a bracket order and returns the broker order id. Success is
// exactly HTTP 200 with body status "ok" and a non-empty id; anything else,
// transport errors included, reads as "order not placed".
func (c *RESTClient) PlaceOrder(ctx context.Context, intent OrderIntent) (string, error) {
	payload := orderPayload{
		Symbol:       intent.Symbol,
		Qty:          intent.Qty,
		Type:         int(intent.Kind),
		Side:         int(intent.Side),
		ProductType:  "BO",
		LimitPrice:   intent.LimitPrice,
		StopLoss:     intent.StopLossPts,
		TakeProfit:   intent.TargetPts,
		TrailingStop: intent.TrailingStopPts,
		Validity:     "DAY",
		OrderTag:     intent.Tag,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/api/v3/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.AppID+":"+c.Token)

	resp, err := c.Http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || out.Status != "ok" || out.ID == "" {
		c.Log.Warn().
			Int("http_status", resp.StatusCode).
			Str("status", out.Status).
			Str("message", out.Message).
			Str("sym", intent.Symbol).
			Msg("order not placed")
		return "", fmt.Errorf("order rejected: %s", out.Message)
	}

	c.Log.Info().
		Str("sym", intent.Symbol).
		Str("side", intent.Side.String()).
		Int("qty", intent.Qty).
		Str("order_id", out.ID).
		Msg("order placed")
	return out.ID, nil
}
