package forecast

import (
	"context"
	"fmt"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
	domsvc "ChainPull/internal/domain/service"
	xhttp "ChainPull/pkg/http"
	"ChainPull/pkg/util"
)

// Client calls the external OHLC forecast service over HTTP. The service
// receives the candle series plus interval hints and answers with a mapping
// from datetime strings to opaque label values.
type Client struct {
	baseURL string
	apiKey  string
	mode    string
	client  *xhttp.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Mode    string
	Timeout time.Duration
}

// New creates a forecast client.
func New(cfg Config) *Client {
	var opts []xhttp.ClientOption
	if cfg.Timeout > 0 {
		opts = append(opts, xhttp.WithTimeout(cfg.Timeout))
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		mode:    cfg.Mode,
		client:  xhttp.NewClient(opts...),
	}
}

type seriesRow struct {
	Datetime string  `json:"datetime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
}

type forecastRequest struct {
	DataInput     []seriesRow `json:"data_input"`
	Interval      int         `json:"interval"`
	IntervalUnit  string      `json:"interval_unit"`
	ReasoningMode string      `json:"reasoning_mode"`
}

// Forecast posts the series and decodes the label mapping. Any transport
// failure, non-2xx status, or unparseable response key makes the whole call
// unusable; the caller drops the dispatch.
func (c *Client) Forecast(ctx context.Context, series []models.Candle, spec domrepo.Spec) (models.LabelMap, error) {
	req := forecastRequest{
		DataInput:     make([]seriesRow, 0, len(series)),
		Interval:      spec.Magnitude,
		IntervalUnit:  string(spec.Unit),
		ReasoningMode: c.mode,
	}
	for _, s := range series {
		req.DataInput = append(req.DataInput, seriesRow{
			Datetime: util.FormatPlain(s.OpenTime),
			Open:     s.Open,
			High:     s.High,
			Low:      s.Low,
			Close:    s.Close,
		})
	}

	var raw map[string]interface{}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/ohlc/forecast",
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-API-Key":    c.apiKey,
		},
		Body: req,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("post forecast: %w", err)
	}

	labels := make(models.LabelMap, len(raw))
	for key, label := range raw {
		ts, ok := util.ParseTime(key)
		if !ok {
			return nil, fmt.Errorf("unparseable forecast key %q", key)
		}
		labels[ts] = label
	}
	return labels, nil
}

var _ domsvc.Forecaster = (*Client)(nil)
