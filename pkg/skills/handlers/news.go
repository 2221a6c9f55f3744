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

const (
	newsPageSize = 5
	newsItems    = 4
)

type newsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// NewsHeadlines lists recent NewsAPI articles about a topic. Without an API
// key it explains how to enable the skill instead of failing.
func (s *Set) NewsHeadlines(ctx context.Context, input map[string]any) (skills.Output, error) {
	topic := stringArg(input, "topic")
	if topic == "" {
		topic = defaultNewsTopic
	}
	language := strings.ToLower(stringArg(input, "language"))
	if language == "" {
		language = "ar"
	}

	if s.cfg.NewsAPIKey == "" {
		return skills.Output{
			Text:     "مهارة الأخبار تتطلب تفعيل NEWS_API_KEY. أضف المفتاح في ملف البيئة ثم أعد تشغيل الخادم.",
			Metadata: map[string]any{"topic": topic, "language": language, "configured": false},
		}, nil
	}

	q := url.Values{}
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", fmt.Sprint(newsPageSize))
	q.Set("language", language)
	q.Set("q", topic)
	var resp newsResponse
	if err := s.getJSON(ctx, s.endpoints.NewsAPI+"?"+q.Encode(), map[string]string{"X-Api-Key": s.cfg.NewsAPIKey}, &resp); err != nil {
		return skills.Output{}, err
	}

	items := resp.Articles
	if len(items) > newsItems {
		items = items[:newsItems]
	}
	if len(items) == 0 {
		return skills.Output{
			Text:     fmt.Sprintf("لا توجد عناوين أخبار متاحة حالياً حول \"%s\".", topic),
			Metadata: map[string]any{"topic": topic, "language": language, "count": 0, "source": "newsapi"},
		}, nil
	}

	blocks := make([]string, 0, len(items))
	for i, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "بدون عنوان"
		}
		heading := fmt.Sprintf("%d. %s", i+1, title)
		if item.Source.Name != "" {
			heading += " (" + item.Source.Name + ")"
		}
		summary := strings.TrimSpace(item.Description)
		if summary == "" {
			summary = "بدون ملخص متاح."
		}
		lines := []string{heading, summary}
		if published := strings.TrimSpace(item.PublishedAt); published != "" {
			lines = append(lines, "النشر: "+published)
		}
		link := strings.TrimSpace(item.URL)
		lines = append(lines, "الرابط: "+orUnavailable(link))
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return skills.Output{
		Text:     fmt.Sprintf("أحدث العناوين حول \"%s\":\n%s", topic, strings.Join(blocks, "\n\n")),
		Metadata: map[string]any{"topic": topic, "language": language, "count": len(items), "source": "newsapi"},
	}, nil
}
