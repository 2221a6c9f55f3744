// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the compiled-in skill handlers. Each handler
// calls one or two read-only public data APIs and formats an Arabic reply.
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/resilience"
	"github.com/jllopis/nabd/pkg/skills"
)

const (
	defaultTimeout   = 9 * time.Second
	defaultTimezone  = "Asia/Riyadh"
	defaultNewsTopic = "الذكاء الاصطناعي"
	geocodeCacheSize = 256
	maxResponseBytes = 4 << 20
	unavailable      = "غير متاح"
)

// Endpoints are the base URLs of the upstream data providers.
type Endpoints struct {
	Geocoding        string
	Forecast         string
	Wikipedia        string
	WikipediaPage    string
	ExchangeRateHost string
	Frankfurter      string
	WorldTime        string
	IPStack          string
	IPAPI            string
	NewsAPI          string
	RestCountries    string
}

// DefaultEndpoints returns the public production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Geocoding:        "https://geocoding-api.open-meteo.com/v1/search",
		Forecast:         "https://api.open-meteo.com/v1/forecast",
		Wikipedia:        "https://ar.wikipedia.org/w/api.php",
		WikipediaPage:    "https://ar.wikipedia.org/",
		ExchangeRateHost: "https://api.exchangerate.host/convert",
		Frankfurter:      "https://api.frankfurter.app/latest",
		WorldTime:        "https://worldtimeapi.org/api/timezone",
		IPStack:          "https://api.ipstack.com",
		IPAPI:            "https://ipapi.co",
		NewsAPI:          "https://newsapi.org/v2/everything",
		RestCountries:    "https://restcountries.com/v3.1/name",
	}
}

// Config configures the handler set.
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	IPStackAPIKey string
	NewsAPIKey    string
	Endpoints     Endpoints
	HTTPClient    *http.Client
	// BreakerThreshold consecutive failures of one upstream host stop calls
	// to it for BreakerCooldown.
	BreakerThreshold int
	BreakerCooldown  time.Duration
	// Now is the clock used by the local date handlers.
	Now func() time.Time
}

// Set holds the shared HTTP client and caches used by every handler.
type Set struct {
	cfg       Config
	client    *http.Client
	geocodes  *lru.Cache[string, geocodeResult]
	endpoints Endpoints
	breakers  *resilience.Breakers
}

// New builds a handler set. Zero-valued config fields take defaults.
func New(cfg Config) (*Set, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	endpoints := mergeEndpoints(DefaultEndpoints(), cfg.Endpoints)

	cache, err := lru.New[string, geocodeResult](geocodeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &Set{
		cfg:       cfg,
		client:    client,
		geocodes:  cache,
		endpoints: endpoints,
		breakers: resilience.NewBreakers(resilience.BreakerConfig{
			FailureThreshold: cfg.BreakerThreshold,
			Cooldown:         cfg.BreakerCooldown,
			IsFailure:        unavailableUpstream,
		}),
	}, nil
}

// unavailableUpstream reports failures that say the provider itself is down:
// timeouts, transport errors, 5xx and 429. A 404 for an unknown place does not
// count.
func unavailableUpstream(err error) bool {
	var ne *errors.NabdError
	return stderrors.As(err, &ne) && ne.Recoverable
}

// BreakerStates reports the circuit state per upstream host.
func (s *Set) BreakerStates() map[string]resilience.BreakerState {
	return s.breakers.States()
}

// Handlers returns the handler table keyed by manifest handler name.
func (s *Set) Handlers() map[string]skills.Handler {
	return map[string]skills.Handler{
		"date_time":      s.DateTime,
		"weather":        s.Weather,
		"web_search":     s.WebSearch,
		"exchange_rate":  s.ExchangeRate,
		"world_time":     s.WorldTime,
		"ip_geolocation": s.IPGeolocation,
		"news_headlines": s.NewsHeadlines,
		"rest_countries": s.RestCountries,
		"hijri_calendar": s.HijriCalendar,
	}
}

func mergeEndpoints(base, override Endpoints) Endpoints {
	pick := func(dst *string, v string) {
		if v = strings.TrimRight(strings.TrimSpace(v), "/"); v != "" {
			*dst = v
		}
	}
	pick(&base.Geocoding, override.Geocoding)
	pick(&base.Forecast, override.Forecast)
	pick(&base.Wikipedia, override.Wikipedia)
	pick(&base.WikipediaPage, override.WikipediaPage)
	pick(&base.ExchangeRateHost, override.ExchangeRateHost)
	pick(&base.Frankfurter, override.Frankfurter)
	pick(&base.WorldTime, override.WorldTime)
	pick(&base.IPStack, override.IPStack)
	pick(&base.IPAPI, override.IPAPI)
	pick(&base.NewsAPI, override.NewsAPI)
	pick(&base.RestCountries, override.RestCountries)
	return base
}

// getJSON performs a bounded GET and decodes the JSON body into out. Each
// upstream host sits behind its own circuit breaker; a failed call is never
// re-attempted.
func (s *Set) getJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return s.breakers.For(host).Call(func() error {
		return s.fetchJSON(ctx, rawURL, headers, out)
	})
}

func (s *Set) fetchJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.New(errors.CodeInternal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New(errors.CodeTimeout, "request timed out", err).WithRecoverable(true)
		}
		return errors.New(errors.CodeUpstream, "request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return errors.New(errors.CodeUpstream, fmt.Sprintf("request failed: %d", resp.StatusCode), nil).
			WithContext("status", resp.StatusCode).
			WithRecoverable(resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return errors.New(errors.CodeUpstream, "decode response", err)
	}
	return nil
}

func stringArg(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return strings.TrimSpace(v)
}

func numberArg(input map[string]any, key string, fallback float64) float64 {
	switch v := input[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

// num renders a float the way a plain number prints in prose: no trailing
// zeros and no exponent.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fixed(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func orUnavailable(v string) string {
	if strings.TrimSpace(v) == "" {
		return unavailable
	}
	return v
}
