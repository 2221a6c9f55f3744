// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jllopis/nabd/pkg/skills"
)

var arabicPrinter = message.NewPrinter(language.MustParse("ar-SA"))

type country struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Capital    []string          `json:"capital"`
	Population *int64            `json:"population"`
	Region     string            `json:"region"`
	Subregion  string            `json:"subregion"`
	Languages  map[string]string `json:"languages"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
}

// RestCountries returns quick facts about a country.
func (s *Set) RestCountries(ctx context.Context, input map[string]any) (skills.Output, error) {
	name := stringArg(input, "country")
	if name == "" {
		return skills.Output{Text: "الرجاء تحديد اسم الدولة المطلوب معلومات عنها."}, nil
	}

	var resp []country
	endpoint := s.endpoints.RestCountries + "/" + url.PathEscape(name) + "?fullText=false"
	if err := s.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return skills.Output{}, err
	}
	if len(resp) == 0 {
		return skills.Output{
			Text:     fmt.Sprintf("لم أجد بيانات موثوقة عن \"%s\".", name),
			Metadata: map[string]any{"country": name, "source": "restcountries"},
		}, nil
	}

	first := resp[0]
	common := first.Name.Common
	if common == "" {
		common = name
	}
	capital := unavailable
	if len(first.Capital) > 0 {
		capital = first.Capital[0]
	}
	population := unavailable
	if first.Population != nil {
		population = arabicPrinter.Sprintf("%d", *first.Population)
	}
	region := orUnavailable(joinNonEmpty(" / ", first.Region, first.Subregion))

	languages := unavailable
	if len(first.Languages) > 0 {
		codes := sortedKeys(first.Languages)
		names := make([]string, 0, 4)
		for _, code := range codes {
			if len(names) == 4 {
				break
			}
			names = append(names, first.Languages[code])
		}
		languages = strings.Join(names, "، ")
	}

	currencies := unavailable
	if len(first.Currencies) > 0 {
		codes := make([]string, 0, len(first.Currencies))
		for code := range first.Currencies {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		labels := make([]string, 0, 3)
		for _, code := range codes {
			if len(labels) == 3 {
				break
			}
			c := first.Currencies[code]
			label := c.Name
			if label == "" {
				label = code
			}
			if c.Symbol != "" {
				label += " (" + c.Symbol + ")"
			}
			labels = append(labels, label)
		}
		currencies = strings.Join(labels, "، ")
	}

	return skills.Output{
		Text: fmt.Sprintf("معلومات سريعة عن %s:\n- العاصمة: %s\n- عدد السكان: %s\n- المنطقة: %s\n- اللغات: %s\n- العملة: %s",
			common, capital, population, region, languages, currencies),
		Metadata: map[string]any{"source": "restcountries", "country": common},
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
