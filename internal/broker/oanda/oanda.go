// Package oanda talks to the OANDA v20 REST API for mid-price candles and
// market orders with attached take-profit and stop-loss.
package oanda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fx-signal-bot/internal/httpclient"
	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var ErrOrderRejected = errors.New("order rejected")

type Config struct {
	BaseURL    string
	APIKey     string
	AccountID  string
	Timeout    time.Duration
	MaxRetries int
	// DryRun fetches real candles but simulates orders.
	DryRun bool
}

type Client struct {
	http      *httpclient.Client
	accountID string
	dryRun    bool
	retry     *httpclient.RetryConfig
}

var _ interfaces.Broker = (*Client)(nil)

func New(cfg Config) *Client {
	retry := httpclient.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	return &Client{
		http: httpclient.NewClient(
			httpclient.WithBaseURL(cfg.BaseURL),
			httpclient.WithBearer(cfg.APIKey),
			httpclient.WithTimeout(cfg.Timeout),
			httpclient.WithLogging(true),
		),
		accountID: cfg.AccountID,
		dryRun:    cfg.DryRun,
		retry:     retry,
	}
}

// RecentCandles returns up to n mid-price candles, oldest first.
func (c *Client) RecentCandles(ctx context.Context, instrument, granularity string, n int) ([]types.Candle, error) {
	q := url.Values{}
	q.Set("granularity", granularity)
	q.Set("count", strconv.Itoa(n))
	q.Set("price", "M")
	path := fmt.Sprintf("/v3/instruments/%s/candles?%s", url.PathEscape(instrument), q.Encode())

	resp, err := c.http.DoWithRetry(httpclient.NewRequest(http.MethodGet, path).WithContext(ctx), c.retry)
	if err != nil {
		return nil, fmt.Errorf("fetching %s candles: %w", instrument, err)
	}
	return ParseCandles(resp.Body)
}

// ParseCandles reads the "candles" array of a v20 candles response.
func ParseCandles(body []byte) ([]types.Candle, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("candles response is not valid JSON")
	}
	arr := gjson.GetBytes(body, "candles")
	if !arr.Exists() {
		return nil, errors.New("candles response has no candles field")
	}

	out := make([]types.Candle, 0, len(arr.Array()))
	var parseErr error
	arr.ForEach(func(_, c gjson.Result) bool {
		mid := c.Get("mid")
		if !mid.Exists() {
			return true
		}
		ts, err := time.Parse(time.RFC3339Nano, c.Get("time").String())
		if err != nil {
			parseErr = fmt.Errorf("candle time %q: %w", c.Get("time").String(), err)
			return false
		}
		out = append(out, types.Candle{
			Ts:    ts.Unix(),
			Open:  mid.Get("o").Float(),
			High:  mid.Get("h").Float(),
			Low:   mid.Get("l").Float(),
			Close: mid.Get("c").Float(),
			Vol:   c.Get("volume").Float(),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

// OrderBody builds the v20 market order payload. Prices are formatted to
// the instrument's digits.
func OrderBody(req types.OrderReq) map[string]any {
	return map[string]any{
		"order": map[string]any{
			"instrument":   req.Instrument,
			"units":        strconv.Itoa(req.Units),
			"type":         "MARKET",
			"positionFill": "DEFAULT",
			"takeProfitOnFill": map[string]string{
				"price": decimal.NewFromFloat(req.TakeProfit).StringFixed(req.Digits),
			},
			"stopLossOnFill": map[string]string{
				"price": decimal.NewFromFloat(req.StopLoss).StringFixed(req.Digits),
			},
		},
	}
}

func (c *Client) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if req.Units == 0 {
		return types.OrderResp{}, fmt.Errorf("%w: zero units", ErrOrderRejected)
	}
	if c.dryRun {
		id := "dry-" + uuid.NewString()
		logger.Info(ctx, "DRY_RUN order simulated", "instrument", req.Instrument, "units", req.Units, "order_id", id)
		return types.OrderResp{OrderID: id, Status: "SIMULATED", Message: "dry run"}, nil
	}

	path := fmt.Sprintf("/v3/accounts/%s/orders", url.PathEscape(c.accountID))
	resp, err := c.http.POST(ctx, path, OrderBody(req))
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("placing %s order: %w", req.Instrument, err)
	}
	return ParseOrderResponse(resp.Body)
}

// ParseOrderResponse maps the fill or cancel transaction of an order reply.
func ParseOrderResponse(body []byte) (types.OrderResp, error) {
	r := gjson.ParseBytes(body)
	if cancel := r.Get("orderCancelTransaction"); cancel.Exists() {
		return types.OrderResp{
			OrderID: cancel.Get("orderID").String(),
			Status:  "CANCELLED",
			Message: cancel.Get("reason").String(),
		}, fmt.Errorf("%w: %s", ErrOrderRejected, cancel.Get("reason").String())
	}
	if fill := r.Get("orderFillTransaction"); fill.Exists() {
		return types.OrderResp{
			OrderID: fill.Get("orderID").String(),
			Status:  "FILLED",
			Price:   fill.Get("price").Float(),
		}, nil
	}
	if create := r.Get("orderCreateTransaction"); create.Exists() {
		return types.OrderResp{OrderID: create.Get("id").String(), Status: "PENDING"}, nil
	}
	return types.OrderResp{}, fmt.Errorf("%w: unexpected response %s", ErrOrderRejected, r.Raw)
}
