// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/jllopis/nabd/pkg/skills"
)

var (
	arabicWeekdays = [...]string{"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت"}
	arabicMonths   = [...]string{"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
		"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر"}
	hijriMonths = [...]string{"محرم", "صفر", "ربيع الأول", "ربيع الآخر", "جمادى الأولى", "جمادى الآخرة",
		"رجب", "شعبان", "رمضان", "شوال", "ذو القعدة", "ذو الحجة"}
)

// arabicDate renders "الاثنين، 11 مارس 2024".
func arabicDate(t time.Time) string {
	return fmt.Sprintf("%s، %d %s %d", arabicWeekdays[t.Weekday()], t.Day(), arabicMonths[t.Month()-1], t.Year())
}

// arabicClock renders a 12-hour clock with the Arabic meridiem marker.
func arabicClock(t time.Time) string {
	marker := "ص"
	if t.Hour() >= 12 {
		marker = "م"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%02d:%02d:%02d %s", hour, t.Minute(), t.Second(), marker)
}

// HijriDate is a date in the tabular Islamic calendar.
type HijriDate struct {
	Year  int
	Month int
	Day   int
}

func (h HijriDate) String() string {
	return fmt.Sprintf("%d %s %d هـ", h.Day, hijriMonths[h.Month-1], h.Year)
}

// ToHijri converts a Gregorian civil date using the arithmetic (tabular)
// Islamic calendar. Observational calendars may differ by a day.
func ToHijri(t time.Time) HijriDate {
	y, m, d := t.Date()
	a := (14 - int(m)) / 12
	yy := y + 4800 - a
	mm := int(m) + 12*a - 3
	jd := d + (153*mm+2)/5 + 365*yy + yy/4 - yy/100 + yy/400 - 32045

	l := jd - 1948440 + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29
	month := (24 * l) / 709
	day := l - (709*month)/24
	year := 30*n + j - 30
	return HijriDate{Year: year, Month: month, Day: day}
}

// resolveTimezone falls back to the default zone for unknown names.
func resolveTimezone(name string) (*time.Location, string) {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, name
		}
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc, defaultTimezone
}

// DateTime reports the local time in the requested timezone without any
// network call.
func (s *Set) DateTime(_ context.Context, input map[string]any) (skills.Output, error) {
	loc, tz := resolveTimezone(stringArg(input, "timezone"))
	now := s.cfg.Now().In(loc)
	return skills.Output{
		Text: fmt.Sprintf("الوقت الحالي هو %s، والتاريخ %s (المنطقة الزمنية: %s).",
			arabicClock(now), arabicDate(now), tz),
		Metadata: map[string]any{"timezone": tz, "source": "local-clock"},
	}, nil
}

// HijriCalendar shows a Gregorian date next to its Hijri equivalent.
func (s *Set) HijriCalendar(_ context.Context, input map[string]any) (skills.Output, error) {
	raw := stringArg(input, "date")
	target := s.cfg.Now().UTC()
	if raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return skills.Output{Text: fmt.Sprintf("صيغة التاريخ \"%s\" غير صحيحة. استخدم YYYY-MM-DD.", raw)}, nil
		}
		target = parsed
	}
	day := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	hijri := ToHijri(day)

	return skills.Output{
		Text: fmt.Sprintf("التاريخ الميلادي: %s\nالتاريخ الهجري: %s، %s",
			arabicDate(day), arabicWeekdays[day.Weekday()], hijri),
		Metadata: map[string]any{
			"source": "tabular-islamic-calendar",
			"date":   day.Format(time.RFC3339),
			"hijri":  fmt.Sprintf("%04d-%02d-%02d", hijri.Year, hijri.Month, hijri.Day),
		},
	}, nil
}
