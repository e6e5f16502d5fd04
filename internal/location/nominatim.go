// Package location turns free text into place suggestions using the
// OpenStreetMap Nominatim geocoder.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "updrift-search/1.0 (+https://github.com/ChristinaDay/updrift)"
	DefaultLimit     = 5
	maxLimit         = 20
	minQueryLen      = 2
)

// Client is safe for concurrent use. Nominatim's usage policy allows one
// request per second, so calls queue on a shared limiter.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	usage     UsageRecorder
	logger    *slog.Logger
}

// UsageRecorder receives one entry per upstream call.
type UsageRecorder interface {
	RecordCall(api, endpoint string, start time.Time, statusCode int, err error)
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }
func WithUsage(u UsageRecorder) Option { return func(c *Client) { c.usage = u } }
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient returns a Nominatim client limited to 1 request per second.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nominatimPlace struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Hamlet      string `json:"hamlet"`
	State       string `json:"state"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Suggest returns up to limit places matching q. Queries shorter than two
// characters return an empty list without calling upstream.
func (c *Client) Suggest(ctx context.Context, q string, limit int) (out []model.LocationSuggestion, err error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minQueryLen {
		return []model.LocationSuggestion{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, maxLimit)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	status := 0
	defer func() {
		if c.usage != nil {
			c.usage.RecordCall("nominatim", "search", start, status, err)
		}
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apierror.HTTPError{StatusCode: resp.StatusCode, Header: resp.Header, Body: string(body), Provider: "nominatim"}
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	out = make([]model.LocationSuggestion, 0, len(places))
	for _, p := range places {
		out = append(out, toSuggestion(p))
	}
	c.logger.Debug("location suggest", "q", q, "results", len(out))
	return out, nil
}

func toSuggestion(p nominatimPlace) model.LocationSuggestion {
	a := p.Address
	city := a.City
	for _, alt := range []string{a.Town, a.Village, a.Hamlet} {
		if city == "" {
			city = alt
		}
	}
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lon, _ := strconv.ParseFloat(p.Lon, 64)
	return model.LocationSuggestion{
		DisplayName: p.DisplayName,
		City:        city,
		State:       a.State,
		Country:     a.Country,
		CountryCode: strings.ToUpper(a.CountryCode),
		Lat:         lat,
		Lon:         lon,
	}
}

// Label formats a suggestion the way the search box expects: "City, State"
// for US places, "City, Country" elsewhere.
func Label(s model.LocationSuggestion) string {
	parts := make([]string, 0, 2)
	if s.City != "" {
		parts = append(parts, s.City)
	}
	switch {
	case s.CountryCode == "US" && s.State != "":
		parts = append(parts, s.State)
	case s.Country != "":
		parts = append(parts, s.Country)
	}
	if len(parts) == 0 {
		return s.DisplayName
	}
	return strings.Join(parts, ", ")
}
