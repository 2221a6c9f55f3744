// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// cityZone pairs a lower-cased place name with its IANA zone. The table is
// ordered so substring scans are deterministic.
type cityZone struct {
	city string
	zone string
}

var cityZones = []cityZone{
	{"الرياض", "Asia/Riyadh"},
	{"جدة", "Asia/Riyadh"},
	{"مكة", "Asia/Riyadh"},
	{"المدينة", "Asia/Riyadh"},
	{"dubai", "Asia/Dubai"},
	{"دبي", "Asia/Dubai"},
	{"أبوظبي", "Asia/Dubai"},
	{"cairo", "Africa/Cairo"},
	{"القاهرة", "Africa/Cairo"},
	{"tokyo", "Asia/Tokyo"},
	{"طوكيو", "Asia/Tokyo"},
	{"london", "Europe/London"},
	{"لندن", "Europe/London"},
	{"paris", "Europe/Paris"},
	{"باريس", "Europe/Paris"},
	{"newyork", "America/New_York"},
	{"new york", "America/New_York"},
	{"نيويورك", "America/New_York"},
}

// currencyNames are replaced by their ISO code before code heuristics run.
// Longer names come first so "الدولار" is not split by "دولار".
var currencyNames = []struct {
	name string
	code string
}{
	{"الدولار", "USD"},
	{"دولار", "USD"},
	{"الريال", "SAR"},
	{"ريال", "SAR"},
	{"اليورو", "EUR"},
	{"يورو", "EUR"},
	{"الدرهم", "AED"},
	{"درهم", "AED"},
	{"الجنيه", "EGP"},
	{"جنيه", "EGP"},
	{"dollars", "USD"},
	{"dollar", "USD"},
	{"euros", "EUR"},
	{"euro", "EUR"},
}

var (
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:في|ب)\s+([^\n،,.؟!]+)`),
		regexp.MustCompile(`(?i)\b(?:in|at)\s+([^\n،,.؟!?]+)`),
		regexp.MustCompile(`(?i)(?:طقس|weather|forecast)\s+([^\n،,.؟!]+)`),
		regexp.MustCompile(`(?i)(?:مدينة|city)\s+([^\n،,.؟!]+)`),
	}

	queryPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`^(ابحث(?:\s+لي)?(?:\s+عن)?)`),
		regexp.MustCompile(`(?i)^(search(?:\s+for)?)`),
		regexp.MustCompile(`^(اعطني|اعطني معلومات|أعطني|أعطني معلومات)\s+(?:عن)?`),
		regexp.MustCompile(`^(من هو|ما هو|ما هي)`),
		regexp.MustCompile(`(?i)^(tell me about)`),
	}

	explicitZone = regexp.MustCompile(`([A-Za-z]+/[A-Za-z_+-]+)`)
	zonePlace    = regexp.MustCompile(`(?i)(?:في|ب|for|in)\s+([^\n،,.؟!]+)`)

	pairWithAmount = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([A-Z]{3})\s*(?:إلى|الى|TO|->|→)\s*([A-Z]{3})`)
	pairOnly       = regexp.MustCompile(`(?i)(?:من|FROM)\s*([A-Z]{3})\s*(?:إلى|الى|TO)\s*([A-Z]{3})`)
	currencyCode   = regexp.MustCompile(`\b[A-Z]{3}\b`)

	countryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:عن|حول|داخل|في)\s+([^\n،,.؟!]+)`),
		regexp.MustCompile(`(?i)(?:country|capital of)\s+([^\n،,.؟!]+)`),
		regexp.MustCompile(`(?:دولة|بلد)\s+([^\n،,.؟!]+)`),
	}

	newsPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(أخبار|خبر|ما آخر أخبار|اعطني أخبار|أعطني أخبار)\s*`),
		regexp.MustCompile(`(?i)^(news|headlines|latest news)\s*`),
	}

	ipv4 = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d{1,2})\.){3}(?:25[0-5]|2[0-4]\d|1?\d{1,2})\b`)
	ipv6 = regexp.MustCompile(`\b(?:[a-fA-F0-9]{1,4}:){2,7}[a-fA-F0-9]{1,4}\b`)

	arabicDigits = strings.NewReplacer("٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9")
)

func firstGroup(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Location finds a place name after "في/ب", "in/at", a weather word or
// "مدينة/city".
func Location(text string) (string, bool) {
	return firstGroup(locationPatterns, strings.TrimSpace(text))
}

// SearchQuery strips leading search verbs. The original text is returned
// when nothing is left.
func SearchQuery(text string) string {
	cleaned := strings.TrimSpace(text)
	q := cleaned
	for _, re := range queryPrefixes {
		q = re.ReplaceAllString(q, "")
	}
	if q = strings.TrimSpace(q); q != "" {
		return q
	}
	return cleaned
}

// Timezone finds an explicit IANA zone or a known city.
func Timezone(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	if m := explicitZone.FindStringSubmatch(cleaned); m != nil {
		return m[1], true
	}
	if m := zonePlace.FindStringSubmatch(cleaned); m != nil {
		place := strings.ToLower(strings.TrimSpace(m[1]))
		for _, cz := range cityZones {
			if cz.city == place {
				return cz.zone, true
			}
		}
	}
	lower := strings.ToLower(cleaned)
	for _, cz := range cityZones {
		if strings.Contains(lower, cz.city) {
			return cz.zone, true
		}
	}
	return "", false
}

// CurrencyRequest is an extracted conversion.
type CurrencyRequest struct {
	From   string
	To     string
	Amount float64
}

// Currency finds "<amount> XXX to YYY", "from XXX to YYY" or two codes.
// Currency names are mapped to ISO codes first.
func Currency(text string, fallback CurrencyRequest) CurrencyRequest {
	cleaned := arabicDigits.Replace(text)
	lower := strings.ToLower(cleaned)
	for _, cn := range currencyNames {
		lower = strings.ReplaceAll(lower, cn.name, " "+cn.code+" ")
	}
	cleaned = strings.ToUpper(lower)

	if m := pairWithAmount.FindStringSubmatch(cleaned); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			amount = fallback.Amount
		}
		return CurrencyRequest{From: m[2], To: m[3], Amount: amount}
	}
	if m := pairOnly.FindStringSubmatch(cleaned); m != nil {
		return CurrencyRequest{From: m[1], To: m[2], Amount: 1}
	}
	if codes := currencyCode.FindAllString(cleaned, -1); len(codes) >= 2 {
		return CurrencyRequest{From: codes[0], To: codes[1], Amount: 1}
	}
	return fallback
}

// Country finds a country name after a preposition or "country/دولة".
func Country(text string) (string, bool) {
	return firstGroup(countryPatterns, strings.TrimSpace(text))
}

// NewsTopic strips leading "news" words. It may return an empty string.
func NewsTopic(text string) string {
	topic := strings.TrimSpace(text)
	for _, re := range newsPrefixes {
		topic = re.ReplaceAllString(topic, "")
	}
	return strings.TrimSpace(topic)
}

// IP returns the first IPv4 literal, else the first IPv6 literal.
func IP(text string) (string, bool) {
	if v := ipv4.FindString(text); v != "" {
		return v, true
	}
	if v := ipv6.FindString(text); v != "" {
		return v, true
	}
	return "", false
}
