package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
	"ChainPull/internal/service/ratelimit"
	xhttp "ChainPull/pkg/http"
)

// RestClient fetches historical klines from the Binance REST API.
type RestClient struct {
	baseURL   string
	symbol    string
	pageLimit int
	client    *xhttp.Client
	limiter   *ratelimit.Limiter
}

// NewRestClient creates a History source for one symbol. pageLimit is
// clamped to the exchange per-request maximum of 1000.
func NewRestClient(baseURL, symbol string, pageLimit int, timeout time.Duration) domrepo.History {
	if pageLimit <= 0 || pageLimit > 1000 {
		pageLimit = 1000
	}
	var opts []xhttp.ClientOption
	if timeout > 0 {
		opts = append(opts, xhttp.WithTimeout(timeout))
	}
	return &RestClient{
		baseURL:   baseURL,
		symbol:    symbol,
		pageLimit: pageLimit,
		client:    xhttp.NewClient(opts...),
		limiter:   ratelimit.New(),
	}
}

// RecentCandles walks the klines endpoint backward in time, one page per
// request, until target bars are collected or the exchange runs out of
// history. The result is ascending and holds at most target bars.
func (r *RestClient) RecentCandles(ctx context.Context, interval string, target int) ([]models.Candle, error) {
	if target <= 0 {
		target = 5000
	}

	var out []models.Candle
	var endTime int64
	for len(out) < target {
		r.waitForSlot(ctx)
		page, err := r.fetchPage(ctx, interval, endTime)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(page, out...)
		// next page ends one millisecond before the earliest bar seen
		endTime = page[0].OpenTime.UnixMilli() - 1
	}
	if len(out) > target {
		out = out[len(out)-target:]
	}
	return out, nil
}

// waitForSlot spreads backfill pages to stay inside the exchange request
// budget shared by all timeframes.
func (r *RestClient) waitForSlot(ctx context.Context) {
	for !r.limiter.Allow("klines", 10, 10) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (r *RestClient) fetchPage(ctx context.Context, interval string, endTime int64) ([]models.Candle, error) {
	params := map[string][]string{
		"symbol":   {r.symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(r.pageLimit)},
	}
	if endTime > 0 {
		params["endTime"] = []string{strconv.FormatInt(endTime, 10)}
	}

	// klines come back as positional arrays:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]interface{}
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         r.baseURL + "/api/v3/klines",
		QueryParams: params,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s: %w", interval, err)
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := candleFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse kline row: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func candleFromRow(row []interface{}) (models.Candle, error) {
	if len(row) < 5 {
		return models.Candle{}, fmt.Errorf("short row: %d fields", len(row))
	}
	ms, ok := row[0].(float64)
	if !ok || ms <= 0 {
		return models.Candle{}, fmt.Errorf("bad open time %v", row[0])
	}
	c := models.Candle{OpenTime: time.UnixMilli(int64(ms)).UTC()}
	for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close} {
		s, ok := row[i+1].(string)
		if !ok {
			return models.Candle{}, fmt.Errorf("bad price field %v", row[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("bad price %q: %w", s, err)
		}
		*dst = v
	}
	return c, nil
}
