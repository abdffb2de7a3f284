// Package source fetches spot metal prices and USD exchange rates.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/config"
	"github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	"github.com/smallbiznis/jewelbill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/jewelbill/internal/observability/tracing"
)

const maxBodyBytes = 1 << 20

// HTTPSource reads a spot endpoint ({"gold":..,"silver":..} in USD per troy
// ounce, or a list of single-key objects) and an FX endpoint
// ({"rates":{"INR":..,"BHD":..}} against USD).
type HTTPSource struct {
	spotURL    string
	fxURL      string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg config.Config) domain.Source {
	return NewHTTPSource(cfg.MetalRate.SpotURL, cfg.MetalRate.FXURL, cfg.MetalRate.RequestTimeout, nil)
}

func NewHTTPSource(spotURL, fxURL string, timeout time.Duration, client *http.Client) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSource{
		spotURL:    strings.TrimSpace(spotURL),
		fxURL:      strings.TrimSpace(fxURL),
		timeout:    timeout,
		httpClient: obstracing.WrapHTTPClient(client),
	}
}

// Fetch returns a live quote. Upstream failures are wrapped in
// metrics.ErrUpstream; the caller decides whether to fall back.
func (s *HTTPSource) Fetch(ctx context.Context) (domain.Quote, error) {
	if s.spotURL == "" || s.fxURL == "" {
		return domain.Quote{}, domain.ErrSourceDisabled
	}

	var spot map[string]decimal.Decimal
	if err := s.getJSON(ctx, s.spotURL, func(body []byte) error {
		var err error
		spot, err = decodeSpot(body)
		return err
	}); err != nil {
		return domain.Quote{}, fmt.Errorf("spot feed: %w", err)
	}

	var fx struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := s.getJSON(ctx, s.fxURL, func(body []byte) error {
		return json.Unmarshal(body, &fx)
	}); err != nil {
		return domain.Quote{}, fmt.Errorf("fx feed: %w", err)
	}

	quote, err := domain.QuoteFromSpot(spot["gold"], spot["silver"], fx.Rates["INR"], fx.Rates["BHD"])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", metrics.ErrUpstream, err)
	}
	return quote, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, url string, decode func([]byte) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", metrics.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %s", metrics.ErrUpstream, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", metrics.ErrUpstream, err)
	}
	if err := decode(body); err != nil {
		return fmt.Errorf("%w: decode: %v", metrics.ErrUpstream, err)
	}
	return nil
}

func decodeSpot(body []byte) (map[string]decimal.Decimal, error) {
	body = bytes.TrimSpace(body)
	out := map[string]decimal.Decimal{}
	if len(body) > 0 && body[0] == '[' {
		var entries []map[string]decimal.Decimal
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, err
		}
		for _, e := range entries {
			for k, v := range e {
				out[strings.ToLower(k)] = v
			}
		}
		return out, nil
	}

	var obj map[string]decimal.Decimal
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	for k, v := range obj {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}
