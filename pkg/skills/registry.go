// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/telemetry"
)

const (
	ManifestFile     = "skill.json"
	InstructionsFile = "SKILL.md"

	// DefaultTTL is how long a discovery result is served before rescanning.
	DefaultTTL = 4 * time.Second
)

// Option configures a Registry.
type Option func(*Registry)

// WithTTL overrides the discovery cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithHandlers sets the compiled-in handler table manifests bind to.
func WithHandlers(handlers map[string]Handler) Option {
	return func(r *Registry) {
		r.handlers = make(map[string]Handler, len(handlers))
		for name, h := range handlers {
			r.handlers[name] = h
		}
	}
}

// WithLogger sets the logger used for discovery warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func withClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry discovers skills below a root directory and caches the result for
// a short TTL. The scan runs without holding the lock; concurrent refreshes may
// duplicate work but always swap in a complete result.
type Registry struct {
	root     string
	ttl      time.Duration
	handlers map[string]Handler
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	skills   []*LoadedSkill
	byID     map[string]*LoadedSkill
	lastScan time.Time
	lastErr  string
}

// NewRegistry creates a registry rooted at root. Nothing is read until the
// first lookup.
func NewRegistry(root string, opts ...Option) *Registry {
	r := &Registry{
		root:     root,
		ttl:      DefaultTTL,
		handlers: map[string]Handler{},
		logger:   slog.Default(),
		now:      time.Now,
		byID:     map[string]*LoadedSkill{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the skills directory.
func (r *Registry) Root() string { return r.root }

// Refresh rescans the root when forced or when the cache expired.
func (r *Registry) Refresh(force bool) {
	r.mu.RLock()
	fresh := !r.lastScan.IsZero() && r.now().Sub(r.lastScan) < r.ttl
	r.mu.RUnlock()
	if fresh && !force {
		return
	}

	skills, err := r.discover()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastScan = r.now()
	if err != nil {
		r.lastErr = err.Error()
		r.logger.Error("skills.scan.error",
			slog.String("root", r.root),
			slog.String("error", err.Error()),
		)
		return
	}
	r.lastErr = ""
	r.skills = skills
	r.byID = make(map[string]*LoadedSkill, len(skills))
	for _, s := range skills {
		r.byID[s.ID] = s
	}
	r.logger.Debug("skills.scan.done",
		slog.String("root", r.root),
		slog.Int("count", len(skills)),
	)
}

// List returns every discovered skill sorted by id.
func (r *Registry) List() []*LoadedSkill {
	r.Refresh(false)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*LoadedSkill, len(r.skills))
	copy(out, r.skills)
	return out
}

// ListExecutable returns the skills bound to a handler.
func (r *Registry) ListExecutable() []*LoadedSkill {
	all := r.List()
	out := all[:0]
	for _, s := range all {
		if s.Executable {
			out = append(out, s)
		}
	}
	return out
}

// Get looks a skill up by id.
func (r *Registry) Get(id string) (*LoadedSkill, bool) {
	r.Refresh(false)
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// MatchInstructionSkills returns up to limit skills whose instructions share
// tokens with query, best first.
func (r *Registry) MatchInstructionSkills(query string, limit int) []*LoadedSkill {
	return matchInstructions(r.List(), query, limit)
}

// Run validates raw input and executes the skill's handler.
func (r *Registry) Run(ctx context.Context, id string, raw map[string]any) (Output, error) {
	s, ok := r.Get(id)
	if !ok {
		return Output{}, errors.New(errors.CodeNotFound,
			fmt.Sprintf("المهارة \"%s\" غير متاحة حالياً", id), nil).
			WithContext("skill", id)
	}
	if !s.Executable {
		return Output{}, errors.New(errors.CodeNotExecutable,
			fmt.Sprintf("المهارة \"%s\" إرشادية فقط وغير قابلة للتنفيذ المباشر", id), nil).
			WithContext("skill", id)
	}
	input, err := s.ParseInput(raw)
	if err != nil {
		return Output{}, err
	}
	return s.Execute(ctx, input)
}

// SkillFormat is one entry of Diagnostics.Formats.
type SkillFormat struct {
	ID         string `json:"id"`
	Format     Format `json:"format"`
	Executable bool   `json:"executable"`
}

// Diagnostics summarizes the last discovery pass.
type Diagnostics struct {
	Root            string        `json:"root"`
	Count           int           `json:"count"`
	ExecutableCount int           `json:"executableCount"`
	IDs             []string      `json:"ids"`
	Formats         []SkillFormat `json:"formats"`
	LastScanAt      *time.Time    `json:"lastScanAt"`
	LastScanError   *string       `json:"lastScanError"`
}

// Diagnostics reports the current catalog and the outcome of the last scan.
func (r *Registry) Diagnostics() Diagnostics {
	skills := r.List()
	d := Diagnostics{
		Root:    r.root,
		Count:   len(skills),
		IDs:     make([]string, 0, len(skills)),
		Formats: make([]SkillFormat, 0, len(skills)),
	}
	for _, s := range skills {
		if s.Executable {
			d.ExecutableCount++
		}
		d.IDs = append(d.IDs, s.ID)
		d.Formats = append(d.Formats, SkillFormat{ID: s.ID, Format: s.Format, Executable: s.Executable})
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.lastScan.IsZero() {
		at := r.lastScan.UTC()
		d.LastScanAt = &at
	}
	if r.lastErr != "" {
		msg := r.lastErr
		d.LastScanError = &msg
	}
	return d
}

// discover walks the immediate subdirectories of root. Per-entry problems are
// logged and skipped; only an unreadable root is an error.
func (r *Registry) discover() ([]*LoadedSkill, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*LoadedSkill{}, nil
		}
		return nil, errors.New(errors.CodeDiscovery, "read skills root", err)
	}

	loaded := make([]*LoadedSkill, 0, len(entries))
	seen := make(map[string]bool)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.root, entry.Name())
		s := r.loadDir(dir)
		if s == nil {
			continue
		}
		if seen[s.ID] {
			r.logger.Warn("skills.scan.duplicate",
				telemetry.SkillAttr(s.ID),
				slog.String("path", s.Path),
			)
			continue
		}
		seen[s.ID] = true
		loaded = append(loaded, s)
	}

	sort.SliceStable(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })
	return loaded, nil
}

func (r *Registry) loadDir(dir string) *LoadedSkill {
	manifestPath := filepath.Join(dir, ManifestFile)
	mdPath := filepath.Join(dir, InstructionsFile)
	hasManifest := fileExists(manifestPath)
	hasMarkdown := fileExists(mdPath)

	if hasManifest {
		m, err := LoadManifest(manifestPath)
		if err != nil {
			r.logger.Warn("skills.manifest.invalid",
				slog.String("path", manifestPath),
				slog.String("error", err.Error()),
			)
			return nil
		}
		handler, ok := r.handlers[m.Handler]
		if !ok {
			r.logger.Warn("skills.handler.missing",
				telemetry.SkillAttr(m.ID),
				slog.String("handler", m.Handler),
			)
			return nil
		}
		s := NewExecutable(*m, manifestPath, handler)
		if hasMarkdown {
			s.Path = mdPath
			if md, err := LoadSkillMarkdown(mdPath); err == nil {
				s.Instructions = md.Body
			}
		}
		_, invalid := compilePatterns(s.Hints().Patterns)
		for _, p := range invalid {
			r.logger.Warn("skills.pattern.invalid",
				telemetry.SkillAttr(s.ID),
				slog.String("pattern", p),
			)
		}
		return s
	}

	if hasMarkdown {
		md, err := LoadSkillMarkdown(mdPath)
		if err != nil {
			r.logger.Warn("skills.markdown.invalid",
				slog.String("path", mdPath),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return instructionSkill(mdPath, md)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
