// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/jllopis/nabd/pkg/skills"
)

type exchangeHostResponse struct {
	Result *float64 `json:"result"`
	Info   *struct {
		Rate *float64 `json:"rate"`
	} `json:"info"`
	Date string `json:"date"`
}

type frankfurterResponse struct {
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// ExchangeRate converts an amount between currencies. exchangerate.host is
// tried first; any failure there falls back to Frankfurter.
func (s *Set) ExchangeRate(ctx context.Context, input map[string]any) (skills.Output, error) {
	from := strings.ToUpper(stringArg(input, "from"))
	if from == "" {
		from = "USD"
	}
	to := strings.ToUpper(stringArg(input, "to"))
	if to == "" {
		to = "SAR"
	}
	amount := numberArg(input, "amount", 1)
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 1
	}

	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("amount", num(amount))
	var primary exchangeHostResponse
	err := s.getJSON(ctx, s.endpoints.ExchangeRateHost+"?"+q.Encode(), nil, &primary)
	if err == nil && primary.Result != nil && !math.IsInf(*primary.Result, 0) && !math.IsNaN(*primary.Result) {
		result := *primary.Result
		rate := result / amount
		if primary.Info != nil && primary.Info.Rate != nil {
			rate = *primary.Info.Rate
		}
		return skills.Output{
			Text: exchangeText(from, to, amount, result, rate, primary.Date),
			Metadata: map[string]any{
				"source": "exchangerate.host", "from": from, "to": to,
				"amount": amount, "result": result, "rate": rate,
			},
		}, nil
	}
	if err != nil {
		slog.Default().DebugContext(ctx, "handlers.exchange.primary_failed", slog.String("error", err.Error()))
	}

	fq := url.Values{}
	fq.Set("amount", num(amount))
	fq.Set("from", from)
	fq.Set("to", to)
	var fallback frankfurterResponse
	if err := s.getJSON(ctx, s.endpoints.Frankfurter+"?"+fq.Encode(), nil, &fallback); err != nil {
		return skills.Output{}, err
	}
	value, ok := fallback.Rates[to]
	if !ok || math.IsInf(value, 0) || math.IsNaN(value) {
		return skills.Output{
			Text:     fmt.Sprintf("تعذر جلب سعر الصرف حالياً بين %s و%s.", from, to),
			Metadata: map[string]any{"source": "frankfurter", "from": from, "to": to, "amount": amount},
		}, nil
	}
	rate := value / amount
	return skills.Output{
		Text: exchangeText(from, to, amount, value, rate, fallback.Date),
		Metadata: map[string]any{
			"source": "frankfurter", "from": from, "to": to,
			"amount": amount, "result": value, "rate": rate,
		},
	}, nil
}

func exchangeText(from, to string, amount, result, rate float64, date string) string {
	text := fmt.Sprintf("سعر الصرف الحالي:\n- %s %s = %s %s\n- السعر لكل 1 %s: %s %s",
		num(amount), from, fixed(result, 4), to, from, fixed(rate, 6), to)
	if date != "" {
		text += "\n- تاريخ البيانات: " + date
	}
	return text
}
