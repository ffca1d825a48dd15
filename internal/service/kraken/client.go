// Package kraken reads public market data from the Kraken REST API.
package kraken

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"
	svccache "CryptoEdge/internal/service/cache"
	xhttp "CryptoEdge/pkg/http"
	"CryptoEdge/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.kraken.com"

// pairs maps display pairs to Kraken's asset-pair names. Unknown pairs are
// sent unchanged.
var pairs = map[string]string{
	"BTC/EUR": "XXBTZEUR",
	"ETH/EUR": "XETHZEUR",
	"BTC/USD": "XXBTZUSD",
	"ETH/USD": "XETHZUSD",
}

func KrakenPair(pair string) string {
	if p, ok := pairs[pair]; ok {
		return p
	}
	return pair
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }

// WithCacheTTL sets how long identical requests are answered from memory.
func WithCacheTTL(ttl time.Duration) Option { return func(c *Client) { c.ttl = ttl } }

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// Client implements MarketData against Kraken's public endpoints.
type Client struct {
	http    *xhttp.Client
	baseURL string
	ttl     time.Duration
	timeout time.Duration
	cache   *svccache.TTLCache[[]byte]
	log     *logger.Logger
}

var _ domrepo.MarketData = (*Client)(nil)

func New(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		ttl:     10 * time.Second,
		timeout: 10 * time.Second,
		log:     log.With(logger.Category("EXCHANGE")),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout), xhttp.WithUserAgent("cryptoedge/1.0"))
	c.cache = svccache.NewTTLCache[[]byte](c.ttl)
	return c
}

type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// public calls /0/public/<endpoint> and returns the result member. Responses
// are cached per full URL.
func (c *Client) public(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	u := c.baseURL + "/0/public/" + endpoint + "?" + params.Encode()
	if b, ok := c.cache.Get(u); ok {
		return b, nil
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: u}, &body)
	if err != nil {
		c.log.Warn("kraken request failed", logger.String("endpoint", endpoint), logger.Error(err))
		return nil, fmt.Errorf("%w: kraken %s: %w", domain.ErrUpstreamFetch, endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: kraken %s: decode: %w", domain.ErrUpstreamFetch, endpoint, err)
	}
	if len(env.Error) > 0 {
		err := errors.New(strings.Join(env.Error, ", "))
		c.log.Warn("kraken api error", logger.String("endpoint", endpoint), logger.Error(err))
		return nil, fmt.Errorf("%w: kraken %s: %w", domain.ErrUpstreamFetch, endpoint, err)
	}

	c.cache.Set(u, env.Result)
	return env.Result, nil
}

// FetchCandles returns OHLC candles oldest first.
func (c *Client) FetchCandles(ctx context.Context, pair string, intervalMinutes int) ([]models.Candle, error) {
	raw, err := c.public(ctx, "OHLC", url.Values{
		"pair":     {KrakenPair(pair)},
		"interval": {strconv.Itoa(intervalMinutes)},
	})
	if err != nil {
		return nil, err
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: ohlc result: %w", domain.ErrUpstreamFetch, err)
	}
	for key, series := range result {
		if key == "last" {
			continue
		}
		var rows [][]json.RawMessage
		if err := json.Unmarshal(series, &rows); err != nil {
			return nil, fmt.Errorf("%w: ohlc rows: %w", domain.ErrUpstreamFetch, err)
		}
		candles := make([]models.Candle, 0, len(rows))
		for _, r := range rows {
			cd, err := parseCandle(r)
			if err != nil {
				return nil, fmt.Errorf("%w: ohlc row: %w", domain.ErrUpstreamFetch, err)
			}
			candles = append(candles, cd)
		}
		return candles, nil
	}
	return []models.Candle{}, nil
}

func parseCandle(r []json.RawMessage) (models.Candle, error) {
	if len(r) < 8 {
		return models.Candle{}, fmt.Errorf("expected 8 fields, got %d", len(r))
	}
	var cd models.Candle
	ts, err := integer(r[0])
	if err != nil {
		return cd, err
	}
	cd.Time = time.Unix(ts, 0).UTC()
	for i, dst := range []*float64{&cd.Open, &cd.High, &cd.Low, &cd.Close, &cd.VWAP, &cd.Volume} {
		if *dst, err = number(r[i+1]); err != nil {
			return cd, err
		}
	}
	if cd.Count, err = integer(r[7]); err != nil {
		return cd, err
	}
	return cd, nil
}

type tickerRow struct {
	C []string        `json:"c"` // last trade [price, lot volume]
	V []string        `json:"v"` // volume [today, 24h]
	P []string        `json:"p"` // vwap [today, 24h]
	T []int64         `json:"t"` // trades [today, 24h]
	L []string        `json:"l"`
	H []string        `json:"h"`
	O json.RawMessage `json:"o"`
}

func (c *Client) FetchTicker(ctx context.Context, pair string) (*models.Ticker, error) {
	raw, err := c.public(ctx, "Ticker", url.Values{"pair": {KrakenPair(pair)}})
	if err != nil {
		return nil, err
	}

	var result map[string]tickerRow
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: ticker result: %w", domain.ErrUpstreamFetch, err)
	}
	for _, row := range result {
		t, err := parseTicker(pair, row)
		if err != nil {
			return nil, fmt.Errorf("%w: ticker: %w", domain.ErrUpstreamFetch, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: ticker: no data for %s", domain.ErrUpstreamFetch, pair)
}

func parseTicker(pair string, row tickerRow) (*models.Ticker, error) {
	if len(row.C) < 1 || len(row.V) < 2 || len(row.P) < 2 || len(row.T) < 2 || len(row.L) < 2 || len(row.H) < 2 {
		return nil, errors.New("short ticker arrays")
	}
	t := &models.Ticker{Pair: pair, Trades24h: row.T[1]}
	fields := []struct {
		dst *float64
		src string
	}{
		{&t.Price, row.C[0]},
		{&t.Volume24h, row.V[1]},
		{&t.VWAP24h, row.P[1]},
		{&t.Low24h, row.L[1]},
		{&t.High24h, row.H[1]},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = d.InexactFloat64()
	}
	open, err := number(row.O)
	if err != nil {
		return nil, err
	}
	t.Open24h = open
	if open != 0 {
		t.Change24h = (t.Price - open) / open * 100
	}
	return t, nil
}

type depthRow struct {
	Asks [][]json.RawMessage `json:"asks"`
	Bids [][]json.RawMessage `json:"bids"`
}

func (c *Client) FetchOrderBook(ctx context.Context, pair string, depth int) (*models.OrderBook, error) {
	raw, err := c.public(ctx, "Depth", url.Values{
		"pair":  {KrakenPair(pair)},
		"count": {strconv.Itoa(depth)},
	})
	if err != nil {
		return nil, err
	}

	var result map[string]depthRow
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: depth result: %w", domain.ErrUpstreamFetch, err)
	}
	for _, row := range result {
		asks, err := parseLevels(row.Asks)
		if err != nil {
			return nil, fmt.Errorf("%w: asks: %w", domain.ErrUpstreamFetch, err)
		}
		bids, err := parseLevels(row.Bids)
		if err != nil {
			return nil, fmt.Errorf("%w: bids: %w", domain.ErrUpstreamFetch, err)
		}
		return &models.OrderBook{Asks: asks, Bids: bids}, nil
	}
	return &models.OrderBook{Asks: []models.BookLevel{}, Bids: []models.BookLevel{}}, nil
}

func parseLevels(rows [][]json.RawMessage) ([]models.BookLevel, error) {
	out := make([]models.BookLevel, 0, len(rows))
	for _, r := range rows {
		if len(r) < 3 {
			return nil, fmt.Errorf("expected 3 fields, got %d", len(r))
		}
		var (
			l   models.BookLevel
			err error
		)
		if l.Price, err = number(r[0]); err != nil {
			return nil, err
		}
		if l.Volume, err = number(r[1]); err != nil {
			return nil, err
		}
		if l.Timestamp, err = integer(r[2]); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// number accepts a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, error) {
	s := string(bytes.Trim(raw, `"`))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

func integer(raw json.RawMessage) (int64, error) {
	f, err := number(raw)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
