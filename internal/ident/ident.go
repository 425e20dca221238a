// Package ident allocates human-readable identifiers for use cases and scenarios.
//
// Use case identifiers look like UC-SEC-001: a prefix, a category token and a zero-padded sequence. Scenario
// identifiers append -SNN to their owning use case. Both pick the smallest free sequence number, so a slot freed by
// a deletion is handed out again before the sequence grows.
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/evanschultz/ucm/internal/domain"
)

var (
	// ErrCapacityExceeded is returned when every sequence number of a token is taken.
	ErrCapacityExceeded = errors.New("identifier capacity exceeded")
	// ErrTokenCollision is returned by the strict strategy when two categories derive the same token.
	ErrTokenCollision = errors.New("category token collision")
	// ErrInvalidCategory is returned when a category has no characters usable in a token.
	ErrInvalidCategory = errors.New("category has no token characters")
)

// Strategy selects how a derived token collision is resolved.
type Strategy string

const (
	// StrategyExtend lengthens the token, then appends a digit, until it is unique.
	StrategyExtend Strategy = "extend"
	// StrategyStrict refuses to allocate and asks for an explicit registry entry.
	StrategyStrict Strategy = "strict"
)

const (
	DefaultPrefix     = "UC"
	baseTokenLen      = 3
	maxTokenLen       = 6
	useCaseSeqWidth   = 3
	scenarioSeqWidth  = 2
	scenarioSeqMarker = "S"
)

// UseCaseKey is the slice of an existing use case the allocator needs.
type UseCaseKey struct {
	ID       string
	Category string
}

// Config holds allocator settings.
type Config struct {
	Prefix   string
	Strategy Strategy
	// Tokens maps a category name (case-insensitive) to a fixed token.
	Tokens map[string]string
}

// Allocator derives identifiers. It is stateless apart from its configuration; callers pass the identifiers that
// already exist.
type Allocator struct {
	prefix   string
	strategy Strategy
	registry map[string]string
}

// New constructs an allocator, normalizing the registry.
func New(cfg Config) (*Allocator, error) {
	prefix := strings.ToUpper(strings.TrimSpace(cfg.Prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !isTokenText(prefix) {
		return nil, fmt.Errorf("invalid identifier prefix %q", cfg.Prefix)
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyExtend
	}
	if strategy != StrategyExtend && strategy != StrategyStrict {
		return nil, fmt.Errorf("unknown token strategy %q", cfg.Strategy)
	}
	registry := make(map[string]string, len(cfg.Tokens))
	seen := make(map[string]string, len(cfg.Tokens))
	for category, token := range cfg.Tokens {
		key := domain.CategoryKey(category)
		token = strings.ToUpper(strings.TrimSpace(token))
		if key == "" || !isTokenText(token) {
			return nil, fmt.Errorf("invalid category token %q for %q", token, category)
		}
		if other, ok := seen[token]; ok && other != key {
			return nil, fmt.Errorf("%w: %q is registered for both %q and %q", ErrTokenCollision, token, other, key)
		}
		seen[token] = key
		registry[key] = token
	}
	return &Allocator{prefix: prefix, strategy: strategy, registry: registry}, nil
}

// Prefix returns the use case identifier prefix.
func (a *Allocator) Prefix() string {
	return a.prefix
}

// UseCaseID returns the next identifier for a use case in category.
func (a *Allocator) UseCaseID(category string, existing []UseCaseKey) (string, error) {
	token, err := a.Token(category, existing)
	if err != nil {
		return "", err
	}
	stem := a.prefix + "-" + token + "-"
	used := make(map[int]struct{}, len(existing))
	for _, uc := range existing {
		if n, ok := sequenceAfter(uc.ID, stem, useCaseSeqWidth); ok {
			used[n] = struct{}{}
		}
	}
	n, err := smallestFree(used, useCaseSeqWidth)
	if err != nil {
		return "", fmt.Errorf("%w: %s%s", err, stem, strings.Repeat("N", useCaseSeqWidth))
	}
	return stem + pad(n, useCaseSeqWidth), nil
}

// ScenarioID returns the next scenario identifier under useCaseID.
func (a *Allocator) ScenarioID(useCaseID string, existing []string) (string, error) {
	useCaseID = strings.TrimSpace(useCaseID)
	if useCaseID == "" {
		return "", errors.New("use case id is required")
	}
	stem := useCaseID + "-" + scenarioSeqMarker
	used := make(map[int]struct{}, len(existing))
	for _, id := range existing {
		if n, ok := sequenceAfter(id, stem, scenarioSeqWidth); ok {
			used[n] = struct{}{}
		}
	}
	n, err := smallestFree(used, scenarioSeqWidth)
	if err != nil {
		return "", fmt.Errorf("%w: %s%s", err, stem, strings.Repeat("N", scenarioSeqWidth))
	}
	return stem + pad(n, scenarioSeqWidth), nil
}

// Token resolves the category token used in use case identifiers.
func (a *Allocator) Token(category string, existing []UseCaseKey) (string, error) {
	key := domain.CategoryKey(category)
	if key == "" {
		return "", ErrInvalidCategory
	}
	if token, ok := a.registry[key]; ok {
		return token, nil
	}

	// Tokens already claimed by other categories, including registry entries.
	claimed := make(map[string]string, len(existing)+len(a.registry))
	for cat, token := range a.registry {
		claimed[token] = cat
	}
	for _, uc := range existing {
		token, ok := a.tokenOf(uc.ID)
		if !ok {
			continue
		}
		ucKey := domain.CategoryKey(uc.Category)
		if ucKey == key {
			return token, nil
		}
		if _, taken := claimed[token]; !taken {
			claimed[token] = ucKey
		}
	}

	letters := tokenRunes(category)
	if len(letters) == 0 {
		return "", ErrInvalidCategory
	}
	base := takeRunes(letters, baseTokenLen)
	if _, taken := claimed[base]; !taken {
		return base, nil
	}
	if a.strategy == StrategyStrict {
		return "", fmt.Errorf("%w: %q derives %q, already used by %q", ErrTokenCollision, category, base, claimed[base])
	}
	for n := baseTokenLen + 1; n <= maxTokenLen && n <= len(letters); n++ {
		candidate := takeRunes(letters, n)
		if _, taken := claimed[candidate]; !taken {
			return candidate, nil
		}
	}
	for digit := 2; digit <= 9; digit++ {
		candidate := base + strconv.Itoa(digit)
		if _, taken := claimed[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free token for %q", ErrTokenCollision, category)
}

// tokenOf extracts the token from a use case identifier produced with this allocator's prefix.
func (a *Allocator) tokenOf(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, a.prefix+"-")
	if !ok {
		return "", false
	}
	token, seq, ok := strings.Cut(rest, "-")
	if !ok || token == "" || len(seq) != useCaseSeqWidth {
		return "", false
	}
	if _, err := strconv.Atoi(seq); err != nil {
		return "", false
	}
	return token, true
}

// SplitUseCaseID returns the owning use case of a scenario identifier. ok is false when id is not a scenario id.
func SplitUseCaseID(id string) (string, bool) {
	idx := strings.LastIndex(id, "-"+scenarioSeqMarker)
	if idx <= 0 {
		return "", false
	}
	seq := id[idx+len(scenarioSeqMarker)+1:]
	if len(seq) != scenarioSeqWidth {
		return "", false
	}
	if _, err := strconv.Atoi(seq); err != nil {
		return "", false
	}
	return id[:idx], true
}

func sequenceAfter(id, stem string, width int) (int, bool) {
	rest, ok := strings.CutPrefix(id, stem)
	if !ok || len(rest) != width {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func smallestFree(used map[int]struct{}, width int) (int, error) {
	limit := 1
	for i := 0; i < width; i++ {
		limit *= 10
	}
	for n := 1; n < limit; n++ {
		if _, taken := used[n]; !taken {
			return n, nil
		}
	}
	return 0, ErrCapacityExceeded
}

func pad(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

func tokenRunes(category string) []rune {
	out := make([]rune, 0, len(category))
	for _, r := range strings.ToUpper(category) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			out = append(out, r)
		}
	}
	return out
}

func takeRunes(runes []rune, n int) string {
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[:n])
}

func isTokenText(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
