// Package steam talks to the store, community market, and card-exchange
// endpoints and parses their semi-structured responses. The markup is not
// ours and changes without notice; parsers degrade per documented defaults
// instead of trusting it.
package steam

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

const (
	defaultStoreBaseURL     = "https://store.steampowered.com"
	defaultCommunityBaseURL = "https://steamcommunity.com"
	defaultExchangeBaseURL  = "https://www.steamcardexchange.net"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MaxQuoteItems is the most items one multibuy quote accepts.
	// Larger batches must be chunked by the caller.
	MaxQuoteItems = 50

	// maxDetailIDs caps one appdetails lookup; AppPrices chunks internally.
	maxDetailIDs = 50

	// Search crawl filters carried over from the original query: trading
	// cards category, price-ascending, free-to-play hidden.
	categoryTradingCards = 29
	categoryGames        = 998
)

// ErrEmptyQuote means a multibuy quote parsed zero prices. A valid page
// always carries at least one price input, so this signals throttling or a
// markup change and is worth retrying before giving up.
var ErrEmptyQuote = errors.New("multibuy quote returned no prices")

// Listing is one row of a search results page.
type Listing struct {
	AppID    int64
	Name     string
	StoreURL string
	Price    int64
}

// Config configures a Client. Zero-value base URLs fall back to the real
// endpoints; a zero Interval disables pacing (tests).
type Config struct {
	SessionSecret string
	MaxPrice      int
	Interval      time.Duration
	Timeout       time.Duration

	StoreBaseURL     string
	CommunityBaseURL string
	ExchangeBaseURL  string
}

// Client is the single outbound gateway to the marketplace. All calls go
// through one rate limiter so the remote sees at most one request per
// configured interval regardless of which operation is running.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	secret   string
	maxPrice int

	storeBase     string
	communityBase string
	exchangeBase  string
}

// New creates a Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}

	c := &Client{
		http:          &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(limit, 1),
		secret:        cfg.SessionSecret,
		maxPrice:      cfg.MaxPrice,
		storeBase:     cfg.StoreBaseURL,
		communityBase: cfg.CommunityBaseURL,
		exchangeBase:  cfg.ExchangeBaseURL,
	}
	if c.storeBase == "" {
		c.storeBase = defaultStoreBaseURL
	}
	if c.communityBase == "" {
		c.communityBase = defaultCommunityBaseURL
	}
	if c.exchangeBase == "" {
		c.exchangeBase = defaultExchangeBaseURL
	}
	return c
}

// OwnedAppIDs fetches the acting user's owned-games snapshot. The result is
// immutable for a run; callers fetch it once and hold it. Any failure here
// is fatal because ownership gates every other decision.
func (c *Client) OwnedAppIDs(ctx context.Context) (map[int64]struct{}, error) {
	body, err := c.get(ctx, c.storeBase+"/dynamicstore/userdata/", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching userdata: %w", err)
	}

	var payload struct {
		OwnedApps []int64 `json:"rgOwnedApps"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding userdata: %w", err)
	}

	owned := make(map[int64]struct{}, len(payload.OwnedApps))
	for _, id := range payload.OwnedApps {
		owned[id] = struct{}{}
	}
	return owned, nil
}

// SearchPage fetches one page of the price-ascending game listing. A non-200
// status or an embedded success flag other than 1 is an error; callers treat
// it as "no data" and skip the page. Broken rows inside a good page are
// defaulted, not fatal.
func (c *Client) SearchPage(ctx context.Context, start, count int) ([]Listing, error) {
	params := url.Values{
		"query":     {""},
		"start":     {strconv.Itoa(start)},
		"count":     {strconv.Itoa(count)},
		"sort_by":   {"Price_ASC"},
		"maxprice":  {strconv.Itoa(c.maxPrice)},
		"category1": {strconv.Itoa(categoryGames)},
		"category2": {strconv.Itoa(categoryTradingCards)},
		"hidef2p":   {"1"},
		"infinite":  {"1"},
	}

	body, err := c.get(ctx, c.storeBase+"/search/results/", params)
	if err != nil {
		return nil, fmt.Errorf("fetching search page at %d: %w", start, err)
	}

	var payload struct {
		Success     int    `json:"success"`
		ResultsHTML string `json:"results_html"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding search page at %d: %w", start, err)
	}
	if payload.Success != 1 {
		return nil, fmt.Errorf("search page at %d returned success=%d", start, payload.Success)
	}

	return parseSearchRows(payload.ResultsHTML)
}

// CardNames scrapes the exchange page for the game's series-1 card list.
// A missing series-1 block means the game drops no cards: (nil, nil), not
// an error.
func (c *Client) CardNames(ctx context.Context, appID int64) ([]string, error) {
	params := url.Values{"gamepage-appid-" + strconv.FormatInt(appID, 10): {""}}

	body, err := c.get(ctx, c.exchangeBase+"/index.php", params)
	if err != nil {
		return nil, fmt.Errorf("fetching card page for %d: %w", appID, err)
	}

	return parseCardNames(body)
}

// MultiBuyPrices requests a bulk quote for up to MaxQuoteItems market item
// names and returns one price (minor units) per name, in request order.
// Zero parsed prices is ErrEmptyQuote; callers retry that with backoff.
func (c *Client) MultiBuyPrices(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > MaxQuoteItems {
		return nil, fmt.Errorf("multibuy quote limited to %d items, got %d", MaxQuoteItems, len(names))
	}

	params := url.Values{"appid": {"753"}}
	for _, name := range names {
		params.Add("items[]", name)
		params.Add("qty[]", "1")
	}

	body, err := c.get(ctx, c.communityBase+"/market/multibuy", params)
	if err != nil {
		return nil, fmt.Errorf("fetching multibuy quote: %w", err)
	}

	prices, err := parseMultiBuyPrices(body)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, ErrEmptyQuote
	}
	return prices, nil
}

// AppPrices looks up current store prices for the given app ids, chunking
// at the endpoint's limit. Ids the store does not report a price for are
// absent from the result.
func (c *Client) AppPrices(ctx context.Context, appIDs []int64) (map[int64]int64, error) {
	prices := make(map[int64]int64, len(appIDs))

	for start := 0; start < len(appIDs); start += maxDetailIDs {
		end := start + maxDetailIDs
		if end > len(appIDs) {
			end = len(appIDs)
		}

		if err := c.appPriceChunk(ctx, appIDs[start:end], prices); err != nil {
			return nil, err
		}
	}

	return prices, nil
}

func (c *Client) appPriceChunk(ctx context.Context, appIDs []int64, out map[int64]int64) error {
	joined := ""
	for i, id := range appIDs {
		if i > 0 {
			joined += ","
		}
		joined += strconv.FormatInt(id, 10)
	}

	params := url.Values{
		"appids":  {joined},
		"filters": {"price_overview"},
	}

	body, err := c.get(ctx, c.storeBase+"/api/appdetails", params)
	if err != nil {
		return fmt.Errorf("fetching app prices: %w", err)
	}

	var payload map[string]struct {
		Success bool `json:"success"`
		Data    struct {
			PriceOverview struct {
				Final int64 `json:"final"`
			} `json:"price_overview"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decoding app prices: %w", err)
	}

	for key, entry := range payload {
		if !entry.Success {
			continue
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = entry.Data.PriceOverview.Final
	}
	return nil
}

// get performs a paced, authenticated GET and returns the decoded body.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if params != nil {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")
	if c.secret != "" {
		req.AddCookie(&http.Cookie{Name: "steamLoginSecure", Value: c.secret})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
