// Package eodhd implements a folio.PriceSource backed by the EOD Historical Data API.
package eodhd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the root of the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"
	// MaxAttempts is the number of times a request is tried before giving up.
	MaxAttempts = 3
)

// Client fetches end of day closing prices from EODHD.
//
// Tickers use the EODHD format "SYMBOL.EXCHANGE" (e.g. "MCD.US").
type Client struct {
	apiKey string
	log    zerolog.Logger

	BaseURL    string
	HTTPClient *http.Client
	Lookback   int           // calendar days searched around a non trading day
	Backoff    time.Duration // wait before the second attempt, grows linearly

	limiter *rate.Limiter
	memo    *cache.Cache // "ticker from to" -> *date.History[folio.Money]
}

// New returns a client authenticated with apiKey.
//
// Requests are limited to 'perSecond' per second (no limit if <= 0).
func New(apiKey string, perSecond float64, log zerolog.Logger) *Client {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Client{
		apiKey:     apiKey,
		log:        log,
		BaseURL:    DefaultBaseURL,
		HTTPClient: NewCachingClient("", log),
		Lookback:   folio.DefaultLookback,
		Backoff:    500 * time.Millisecond,
		limiter:    rate.NewLimiter(limit, 1),
		memo:       cache.New(time.Hour, 10*time.Minute),
	}
}

// CloseOnOrBefore implements folio.PriceSource.
func (c *Client) CloseOnOrBefore(ctx context.Context, ticker string, on date.Date) (date.Date, folio.Money, error) {
	h, err := c.closes(ctx, ticker, on.Add(-c.Lookback), on)
	if err != nil {
		return date.Date{}, folio.Money{}, err
	}
	day, v, ok := h.ValueAsOf(on)
	if !ok {
		return date.Date{}, folio.Money{}, fmt.Errorf("%s on or before %s: %w", ticker, on, folio.ErrPriceNotFound)
	}
	return day, v, nil
}

// CloseOnOrAfter implements folio.PriceSource.
func (c *Client) CloseOnOrAfter(ctx context.Context, ticker string, on date.Date) (date.Date, folio.Money, error) {
	h, err := c.closes(ctx, ticker, on, on.Add(c.Lookback))
	if err != nil {
		return date.Date{}, folio.Money{}, err
	}
	day, v, ok := h.ValueOnOrAfter(on)
	if !ok {
		return date.Date{}, folio.Money{}, fmt.Errorf("%s on or after %s: %w", ticker, on, folio.ErrPriceNotFound)
	}
	return day, v, nil
}

// Closes implements folio.RangeSource with a single request for the whole period.
func (c *Client) Closes(ctx context.Context, ticker string, from, to date.Date) (folio.PriceSeries, error) {
	h, err := c.closes(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	series := make(folio.PriceSeries, 0, h.Len())
	for day, v := range h.Between(from, to) {
		series = append(series, folio.Close{Date: day, Price: v})
	}
	return series, nil
}

// closes returns the closing prices of ticker in [from, to], memoized.
func (c *Client) closes(ctx context.Context, ticker string, from, to date.Date) (*date.History[folio.Money], error) {
	key := fmt.Sprintf("%s %s %s", ticker, from, to)
	if h, ok := c.memo.Get(key); ok {
		return h.(*date.History[folio.Money]), nil
	}
	h, err := c.fetchCloses(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	c.memo.Set(key, h, cache.DefaultExpiration)
	return h, nil
}

// fetchCloses queries the eod endpoint.
//
//	https://eodhd.com/api/eod/MCD.US?api_token=demo&fmt=json&from=2024-02-01&to=2024-02-13
//	[
//	  {
//	    "date": "2024-02-13",
//	    "open": 675.066,
//	    "high": 684.219,
//	    "low": 648.659,
//	    "close": 668.445,
//	    "adjusted_close": 67.705,
//	    "volume": 0
//	  },
//	  ...
//	]
func (c *Client) fetchCloses(ctx context.Context, ticker string, from, to date.Date) (*date.History[folio.Money], error) {
	addr := fmt.Sprintf("%s/eod/%s?fmt=json&api_token=%s&from=%s&to=%s", c.BaseURL, url.PathEscape(ticker), url.QueryEscape(c.apiKey), from, to)

	var jobj any
	if err := c.get(ctx, addr, &jobj); err != nil {
		var status *statusError
		if errors.As(err, &status) && status.Code == http.StatusNotFound {
			return nil, &folio.UnknownTickerError{Ticker: ticker}
		}
		return nil, fmt.Errorf("cannot fetch %s prices: %w", ticker, err)
	}

	days, err := jsonpath.Get("$[*].date", jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s dates: %w", ticker, err)
	}
	closes, err := jsonpath.Get("$[*].close", jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s closes: %w", ticker, err)
	}
	dayList, _ := days.([]any)
	closeList, _ := closes.([]any)
	if len(dayList) != len(closeList) {
		return nil, fmt.Errorf("error parsing %s: %d dates for %d closes", ticker, len(dayList), len(closeList))
	}

	h := new(date.History[folio.Money])
	for i, jday := range dayList {
		s, ok := jday.(string)
		if !ok {
			return nil, fmt.Errorf("error parsing %s: date %v is not a string", ticker, jday)
		}
		day, err := date.Parse(s)
		if err != nil {
			return nil, err
		}
		value, ok := closeList[i].(float64)
		if !ok {
			return nil, fmt.Errorf("error parsing %s: close %v on %s is not a number", ticker, closeList[i], day)
		}
		h.Append(day, folio.M(decimal.NewFromFloat(value)))
	}
	return h, nil
}

// get performs jwget with rate limiting, and retries temporary failures.
func (c *Client) get(ctx context.Context, addr string, data any) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.Backoff):
			}
		}
		if err = c.limiter.Wait(ctx); err != nil {
			return err
		}
		err = jwget(ctx, c.HTTPClient, addr, data)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
		c.log.Debug().Err(err).Int("attempt", attempt).Msg("eodhd request failed")
	}
	return err
}

func retryable(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.temporary()
	}
	// transport errors
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

var (
	_ folio.PriceSource = (*Client)(nil)
	_ folio.RangeSource = (*Client)(nil)
)
