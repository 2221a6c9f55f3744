// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/jllopis/nabd/pkg/skills"
)

const (
	searchLimit   = 5
	searchResults = 3
)

type wikipediaResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			PageID  int64  `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

// WebSearch runs a quick Arabic Wikipedia search and lists the top hits.
func (s *Set) WebSearch(ctx context.Context, input map[string]any) (skills.Output, error) {
	query := stringArg(input, "query")
	if query == "" {
		query = defaultNewsTopic
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("format", "json")
	q.Set("utf8", "1")
	q.Set("srlimit", strconv.Itoa(searchLimit))
	q.Set("origin", "*")
	q.Set("srsearch", query)

	var resp wikipediaResponse
	if err := s.getJSON(ctx, s.endpoints.Wikipedia+"?"+q.Encode(), nil, &resp); err != nil {
		return skills.Output{}, err
	}

	hits := resp.Query.Search
	if len(hits) > searchResults {
		hits = hits[:searchResults]
	}
	if len(hits) == 0 {
		return skills.Output{
			Text:     fmt.Sprintf("لم أجد نتائج واضحة لعبارة \"%s\" في البحث السريع.", query),
			Metadata: map[string]any{"query": query, "source": "wikipedia"},
		}, nil
	}

	blocks := make([]string, 0, len(hits))
	for i, hit := range hits {
		link := fmt.Sprintf("%s/?curid=%d", strings.TrimSuffix(s.endpoints.WikipediaPage, "/"), hit.PageID)
		blocks = append(blocks, fmt.Sprintf("%d. %s\n%s\nالرابط: %s", i+1, hit.Title, stripHTML(hit.Snippet), link))
	}
	return skills.Output{
		Text: fmt.Sprintf("نتائج البحث عن \"%s\":\n%s", query, strings.Join(blocks, "\n\n")),
		Metadata: map[string]any{
			"query":  query,
			"count":  len(hits),
			"source": "wikipedia",
		},
	}, nil
}

// stripHTML keeps the text content of an HTML fragment and collapses
// whitespace. Entities are decoded.
func stripHTML(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.Join(strings.Fields(fragment), " ")
			}
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
