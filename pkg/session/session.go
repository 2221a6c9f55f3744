// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package session identifies anonymous users by a long-lived cookie.
package session

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the user id.
const CookieName = "nabd_uid"

// MaxAge is one year in seconds.
const MaxAge = 60 * 60 * 24 * 365

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,80}$`)

// ParseCookieHeader splits a Cookie header into name/value pairs. Entries
// without a name or value are skipped; values are URL-decoded when possible.
func ParseCookieHeader(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		entry := strings.TrimSpace(part)
		sep := strings.Index(entry, "=")
		if sep <= 0 {
			continue
		}
		key := strings.TrimSpace(entry[:sep])
		value := strings.TrimSpace(entry[sep+1:])
		if key == "" || value == "" {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		out[key] = value
	}
	return out
}

// BuildCookie renders the Set-Cookie value for id.
func BuildCookie(id string, secure bool) string {
	parts := []string{
		CookieName + "=" + url.PathEscape(id),
		"Path=/",
		"Max-Age=" + strconv.Itoa(MaxAge),
		"HttpOnly",
		"SameSite=Lax",
	}
	if secure {
		parts = append(parts, "Secure")
	}
	return strings.Join(parts, "; ")
}

// IsLikelyUserID reports whether value looks like an id this package issued.
func IsLikelyUserID(value string) bool {
	return userIDPattern.MatchString(value)
}

// Resolver reads or issues the user id cookie.
type Resolver struct {
	// Secure adds the Secure attribute to issued cookies.
	Secure bool

	newID func() string
}

// NewResolver creates a Resolver.
func NewResolver(secure bool) *Resolver {
	return &Resolver{Secure: secure, newID: uuid.NewString}
}

// Resolve returns the request's user id. When the cookie is missing or
// malformed a new id is issued through a Set-Cookie header on w.
func (s *Resolver) Resolve(w http.ResponseWriter, r *http.Request) string {
	if existing := ParseCookieHeader(r.Header.Get("Cookie"))[CookieName]; IsLikelyUserID(existing) {
		return existing
	}
	id := s.newID()
	w.Header().Add("Set-Cookie", BuildCookie(id, s.Secure))
	return id
}
