package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/shopspring/decimal"
)

// Provider 列舉支援的報價來源格式。
type Provider string

const (
	ProviderFinnhub Provider = "finnhub"
	ProviderBinance Provider = "binance"
)

const maxBodyBytes = 1 << 20

// Client 為報價 HTTP client，實作 pricing.QuoteSource。
type Client struct {
	provider   Provider
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient 建立報價 client；baseURL 為空時使用 provider 預設位址。
func NewClient(provider Provider, baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	switch provider {
	case ProviderFinnhub:
		if baseURL == "" {
			baseURL = "https://finnhub.io"
		}
	case ProviderBinance:
		if baseURL == "" {
			baseURL = "https://api.binance.com"
		}
	default:
		return nil, fmt.Errorf("unsupported quote provider: %q", provider)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		provider:   provider,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Quote 取得目前價格；缺價或價格為 0 回傳 ErrNoPrice。
func (c *Client) Quote(ctx context.Context, ticker string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	var path string
	switch c.provider {
	case ProviderFinnhub:
		path = "/api/v1/quote"
		if c.apiKey != "" {
			params.Set("token", c.apiKey)
		}
	case ProviderBinance:
		path = "/api/v3/ticker/price"
	}

	body, err := c.call(ctx, path, params)
	if err != nil {
		return decimal.Zero, err
	}

	var price decimal.Decimal
	switch c.provider {
	case ProviderFinnhub:
		price, err = parseFinnhub(body)
	case ProviderBinance:
		price, err = parseBinance(body)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote %s: %w", ticker, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("quote %s: %w", ticker, alertDomain.ErrNoPrice)
	}
	return price, nil
}

func (c *Client) call(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.provider == ProviderFinnhub && c.apiKey != "" {
		req.Header.Set("X-Finnhub-Token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote api error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

type finnhubQuote struct {
	Current *decimal.Decimal `json:"c"`
}

func parseFinnhub(body []byte) (decimal.Decimal, error) {
	var q finnhubQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return decimal.Zero, fmt.Errorf("decode finnhub quote: %w", err)
	}
	if q.Current == nil {
		return decimal.Zero, alertDomain.ErrNoPrice
	}
	return *q.Current, nil
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func parseBinance(body []byte) (decimal.Decimal, error) {
	var t binanceTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return decimal.Zero, fmt.Errorf("decode binance ticker: %w", err)
	}
	if t.Price == "" {
		return decimal.Zero, alertDomain.ErrNoPrice
	}
	p, err := decimal.NewFromString(t.Price)
	if err != nil {
		return decimal.Zero, errors.Join(alertDomain.ErrNoPrice, err)
	}
	return p, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
