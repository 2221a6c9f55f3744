// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package intent

import "testing"

func TestLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"كيف الطقس في جدة؟", "جدة", true},
		{"weather in Paris?", "Paris", true},
		{"forecast London, please", "London", true},
		{"طقس الرياض", "الرياض", true},
		{"مدينة أبها", "أبها", true},
		{"hello", "", false},
	}
	for _, tt := range tests {
		got, ok := Location(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Location(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSearchQuery(t *testing.T) {
	tests := map[string]string{
		"ابحث لي عن تاريخ الأندلس": "تاريخ الأندلس",
		"Search for golang":        "golang",
		"أعطني عن القهوة":          "القهوة",
		"ما هو الذكاء الاصطناعي":   "الذكاء الاصطناعي",
		"tell me about Mars":       "Mars",
		"ابحث":                     "ابحث",
	}
	for in, want := range tests {
		if got := SearchQuery(in); got != want {
			t.Errorf("SearchQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimezone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"time in Europe/Madrid", "Europe/Madrid", true},
		{"الوقت في دبي", "Asia/Dubai", true},
		{"what time is it in new york", "America/New_York", true},
		{"الوقت الآن بتوقيت القاهرة", "Africa/Cairo", true},
		{"الوقت الآن", "", false},
	}
	for _, tt := range tests {
		got, ok := Timezone(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Timezone(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCurrency(t *testing.T) {
	fallback := CurrencyRequest{From: "USD", To: "SAR", Amount: 1}
	tests := []struct {
		in   string
		want CurrencyRequest
	}{
		{"حول ١٠٠ usd إلى eur", CurrencyRequest{From: "USD", To: "EUR", Amount: 100}},
		{"سعر الصرف من GBP إلى JPY", CurrencyRequest{From: "GBP", To: "JPY", Amount: 1}},
		{"EUR مقابل AED", CurrencyRequest{From: "EUR", To: "AED", Amount: 1}},
		{"كم 50 دولار إلى ريال", CurrencyRequest{From: "USD", To: "SAR", Amount: 50}},
		{"convert 20 euros to dollars", CurrencyRequest{From: "EUR", To: "USD", Amount: 20}},
		{"سعر الصرف اليوم", fallback},
	}
	for _, tt := range tests {
		if got := Currency(tt.in, fallback); got != tt.want {
			t.Errorf("Currency(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestCountryNewsAndIP(t *testing.T) {
	if got, ok := Country("معلومات عن اليابان"); !ok || got != "اليابان" {
		t.Errorf("Country = %q, %v", got, ok)
	}
	if got, ok := Country("capital of France"); !ok || got != "France" {
		t.Errorf("Country = %q, %v", got, ok)
	}
	if got := NewsTopic("أخبار الاقتصاد"); got != "الاقتصاد" {
		t.Errorf("NewsTopic = %q", got)
	}
	if got := NewsTopic("latest news"); got != "" {
		t.Errorf("NewsTopic = %q, want empty", got)
	}
	if got, ok := IP("موقع 192.168.1.20 من فضلك"); !ok || got != "192.168.1.20" {
		t.Errorf("IP = %q, %v", got, ok)
	}
	if got, ok := IP("where is 2001:db8:85a3:0:0:8a2e:370:7334"); !ok || got != "2001:db8:85a3:0:0:8a2e:370:7334" {
		t.Errorf("IP = %q, %v", got, ok)
	}
	if _, ok := IP("no address"); ok {
		t.Errorf("expected no IP")
	}
}
