// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/jllopis/nabd/pkg/skills"
)

var ipInputPattern = regexp.MustCompile(`^[A-Za-z0-9:.]+$`)

type ipstackResponse struct {
	IP          string   `json:"ip"`
	CountryName string   `json:"country_name"`
	RegionName  string   `json:"region_name"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Connection  struct {
		ISP string `json:"isp"`
	} `json:"connection"`
	Currency struct {
		Code string `json:"code"`
	} `json:"currency"`
	TimeZone struct {
		ID string `json:"id"`
	} `json:"time_zone"`
}

type ipapiResponse struct {
	IP          string   `json:"ip"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timezone    string   `json:"timezone"`
	Org         string   `json:"org"`
	Currency    string   `json:"currency"`
}

type ipLocation struct {
	ip, city, region, country, timezone, isp, currency string
	lat, lon                                           *float64
}

func (l ipLocation) text() string {
	header := "معلومات الموقع عبر IP"
	if l.ip != "" {
		header += " (" + l.ip + ")"
	}
	coords := unavailable
	if l.lat != nil && l.lon != nil {
		coords = num(*l.lat) + ", " + num(*l.lon)
	}
	label := joinNonEmpty(" - ", joinNonEmpty("، ", l.city, l.region), l.country)
	return fmt.Sprintf("%s:\n- الموقع: %s\n- المنطقة الزمنية: %s\n- الإحداثيات: %s\n- مزود الخدمة: %s\n- العملة: %s",
		header, orUnavailable(label), orUnavailable(l.timezone), coords, orUnavailable(l.isp), orUnavailable(l.currency))
}

// IPGeolocation locates an IP address, or the caller's own address when
// none is given. ipstack is used when a key is configured.
func (s *Set) IPGeolocation(ctx context.Context, input map[string]any) (skills.Output, error) {
	ip := stringArg(input, "ip")
	if !ipInputPattern.MatchString(ip) {
		ip = ""
	}
	requested := ip
	if requested == "" {
		requested = "current"
	}

	if key := s.cfg.IPStackAPIKey; key != "" {
		target := ip
		if target == "" {
			target = "check"
		}
		var data ipstackResponse
		err := s.getJSON(ctx, s.endpoints.IPStack+"/"+url.PathEscape(target)+"?access_key="+url.QueryEscape(key), nil, &data)
		if err == nil && (data.CountryName != "" || data.City != "" || data.TimeZone.ID != "") {
			loc := ipLocation{
				ip: data.IP, city: data.City, region: data.RegionName, country: data.CountryName,
				timezone: data.TimeZone.ID, isp: data.Connection.ISP, currency: data.Currency.Code,
				lat: data.Latitude, lon: data.Longitude,
			}
			return skills.Output{Text: loc.text(), Metadata: ipMetadata("ipstack", data.IP, requested, loc)}, nil
		}
		if err != nil {
			slog.Default().DebugContext(ctx, "handlers.ipstack.failed", slog.String("error", err.Error()))
		}
	}

	endpoint := s.endpoints.IPAPI + "/json/"
	if ip != "" {
		endpoint = s.endpoints.IPAPI + "/" + url.PathEscape(ip) + "/json/"
	}
	var data ipapiResponse
	if err := s.getJSON(ctx, endpoint, nil, &data); err != nil {
		return skills.Output{}, err
	}
	loc := ipLocation{
		ip: data.IP, city: data.City, region: data.Region, country: data.CountryName,
		timezone: data.Timezone, isp: data.Org, currency: data.Currency,
		lat: data.Latitude, lon: data.Longitude,
	}
	source := "ipapi"
	if s.cfg.IPStackAPIKey != "" {
		source = "ipapi-fallback"
	}
	return skills.Output{Text: loc.text(), Metadata: ipMetadata(source, data.IP, requested, loc)}, nil
}

func ipMetadata(source, resolved, requested string, loc ipLocation) map[string]any {
	ip := resolved
	if ip == "" {
		ip = requested
	}
	return map[string]any{
		"source":   source,
		"ip":       ip,
		"timezone": loc.timezone,
		"country":  loc.country,
	}
}
