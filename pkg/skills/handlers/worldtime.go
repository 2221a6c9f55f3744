// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jllopis/nabd/pkg/skills"
)

type worldTimeResponse struct {
	Timezone  string `json:"timezone"`
	Datetime  string `json:"datetime"`
	UTCOffset string `json:"utc_offset"`
	DayOfWeek *int   `json:"day_of_week"`
}

// WorldTime fetches the current time of an IANA zone from worldtimeapi.
func (s *Set) WorldTime(ctx context.Context, input map[string]any) (skills.Output, error) {
	loc, tz := resolveTimezone(stringArg(input, "timezone"))

	var resp worldTimeResponse
	if err := s.getJSON(ctx, s.endpoints.WorldTime+"/"+escapeZonePath(tz), nil, &resp); err != nil {
		return skills.Output{}, err
	}
	instant, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(resp.Datetime))
	if err != nil {
		return skills.Output{
			Text:     fmt.Sprintf("تعذر جلب الوقت العالمي للمنطقة %s.", tz),
			Metadata: map[string]any{"timezone": tz, "source": "worldtimeapi"},
		}, nil
	}

	zone := tz
	if resp.Timezone != "" {
		zone = resp.Timezone
	}
	local := instant.In(loc)
	text := fmt.Sprintf("الوقت الحالي في %s:\n- %s\n- %s", zone, arabicClock(local), arabicDate(local))
	if resp.UTCOffset != "" {
		text += "\n- فرق التوقيت UTC: " + resp.UTCOffset
	}
	meta := map[string]any{"source": "worldtimeapi", "timezone": zone}
	if resp.DayOfWeek != nil {
		meta["dayOfWeek"] = *resp.DayOfWeek
	}
	return skills.Output{Text: text, Metadata: meta}, nil
}

func escapeZonePath(tz string) string {
	parts := strings.Split(tz, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
