// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jllopis/nabd/pkg/skills"
)

var weatherCodes = map[int]string{
	0:  "صحو",
	1:  "غائم جزئياً",
	2:  "غائم",
	3:  "غائم كلياً",
	45: "ضباب",
	48: "ضباب متجمد",
	51: "رذاذ خفيف",
	53: "رذاذ متوسط",
	55: "رذاذ كثيف",
	56: "رذاذ متجمد خفيف",
	57: "رذاذ متجمد كثيف",
	61: "مطر خفيف",
	63: "مطر متوسط",
	65: "مطر غزير",
	66: "مطر متجمد خفيف",
	67: "مطر متجمد غزير",
	71: "ثلج خفيف",
	73: "ثلج متوسط",
	75: "ثلج كثيف",
	77: "حبوب ثلج",
	80: "زخات مطر خفيفة",
	81: "زخات مطر متوسطة",
	82: "زخات مطر عنيفة",
	85: "زخات ثلج خفيفة",
	86: "زخات ثلج كثيفة",
	95: "عاصفة رعدية",
	96: "عاصفة رعدية مع برد خفيف",
	99: "عاصفة رعدية مع برد كثيف",
}

type geocodeResult struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
}

type forecastResponse struct {
	Current *struct {
		Temperature  *float64 `json:"temperature_2m"`
		Humidity     *float64 `json:"relative_humidity_2m"`
		ApparentTemp *float64 `json:"apparent_temperature"`
		WeatherCode  *int     `json:"weather_code"`
		WindSpeed    *float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// geocode resolves a place name, caching hits by normalized name.
func (s *Set) geocode(ctx context.Context, location string) (geocodeResult, bool, error) {
	key := strings.ToLower(location)
	if hit, ok := s.geocodes.Get(key); ok {
		return hit, true, nil
	}
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")
	q.Set("language", "ar")
	q.Set("format", "json")

	var resp geocodeResponse
	if err := s.getJSON(ctx, s.endpoints.Geocoding+"?"+q.Encode(), nil, &resp); err != nil {
		return geocodeResult{}, false, err
	}
	if len(resp.Results) == 0 {
		return geocodeResult{}, false, nil
	}
	s.geocodes.Add(key, resp.Results[0])
	return resp.Results[0], true, nil
}

// Weather reports current conditions from Open-Meteo.
func (s *Set) Weather(ctx context.Context, input map[string]any) (skills.Output, error) {
	location := stringArg(input, "location")
	if location == "" {
		location = "الرياض"
	}

	place, found, err := s.geocode(ctx, location)
	if err != nil {
		return skills.Output{}, err
	}
	if !found {
		return skills.Output{Text: fmt.Sprintf("لم أتمكن من تحديد الموقع \"%s\". حاول كتابة اسم مدينة أوضح.", location)}, nil
	}

	q := url.Values{}
	q.Set("latitude", num(place.Latitude))
	q.Set("longitude", num(place.Longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m")
	q.Set("timezone", "auto")

	var forecast forecastResponse
	if err := s.getJSON(ctx, s.endpoints.Forecast+"?"+q.Encode(), nil, &forecast); err != nil {
		return skills.Output{}, err
	}
	current := forecast.Current
	if current == nil {
		return skills.Output{Text: fmt.Sprintf("تم العثور على \"%s\" لكن بيانات الطقس غير متاحة حالياً.", place.Name)}, nil
	}

	condition := unavailable
	if current.WeatherCode != nil {
		if text, ok := weatherCodes[*current.WeatherCode]; ok {
			condition = text
		} else {
			condition = fmt.Sprintf("رمز حالة الطقس %d", *current.WeatherCode)
		}
	}
	label := joinNonEmpty("، ", place.Name, place.Country)

	var b strings.Builder
	fmt.Fprintf(&b, "الطقس الحالي في %s:\n", label)
	fmt.Fprintf(&b, "- الحالة: %s\n", condition)
	fmt.Fprintf(&b, "- الحرارة: %s\n", withUnit(current.Temperature, 1, "°م"))
	fmt.Fprintf(&b, "- المحسوسة: %s\n", withUnit(current.ApparentTemp, 1, "°م"))
	fmt.Fprintf(&b, "- الرطوبة: %s\n", withUnit(current.Humidity, -1, "%"))
	fmt.Fprintf(&b, "- سرعة الرياح: %s", withUnit(current.WindSpeed, -1, " كم/س"))

	return skills.Output{
		Text: b.String(),
		Metadata: map[string]any{
			"location":  label,
			"latitude":  place.Latitude,
			"longitude": place.Longitude,
		},
	}, nil
}

func withUnit(v *float64, digits int, unit string) string {
	if v == nil {
		return unavailable
	}
	if digits < 0 {
		return num(*v) + unit
	}
	return fixed(*v, digits) + unit
}
