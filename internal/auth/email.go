// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// MaxEmailLength is the longest accepted address (RFC 5321 path limit).
const MaxEmailLength = 254

// DefaultAllowedDomains are the institutional domains accepted by default.
var DefaultAllowedDomains = []string{"uct.cl", "alu.uct.cl"}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email is a normalized, validated email address. The zero value is not a
// valid address; use ParseEmail or EmailPolicy.Parse.
type Email struct {
	value string
}

// String returns the normalized address.
func (e Email) String() string {
	return e.value
}

// Domain returns the part after the last '@'.
func (e Email) Domain() string {
	return e.value[strings.LastIndexByte(e.value, '@')+1:]
}

// Equals compares normalized values.
func (e Email) Equals(other Email) bool {
	return e.value == other.value
}

// IsZero reports whether e was never parsed.
func (e Email) IsZero() bool {
	return e.value == ""
}

// EmailPolicy restricts addresses to an allow-list of domain patterns.
type EmailPolicy struct {
	patterns []string
	globs    []glob.Glob
}

// NewEmailPolicy compiles domain glob patterns such as "uct.cl" or
// "*.uct.cl". Matching is case-insensitive.
func NewEmailPolicy(patterns ...string) (*EmailPolicy, error) {
	if len(patterns) == 0 {
		return nil, oops.Code("EMAIL_POLICY_EMPTY").Errorf("at least one allowed domain is required")
	}
	p := &EmailPolicy{
		patterns: make([]string, 0, len(patterns)),
		globs:    make([]glob.Glob, 0, len(patterns)),
	}
	for _, raw := range patterns {
		pattern := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "@")))
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, oops.Code("EMAIL_POLICY_INVALID").With("pattern", raw).Wrap(err)
		}
		p.patterns = append(p.patterns, pattern)
		p.globs = append(p.globs, g)
	}
	return p, nil
}

var defaultEmailPolicy = mustEmailPolicy(DefaultAllowedDomains...)

func mustEmailPolicy(patterns ...string) *EmailPolicy {
	p, err := NewEmailPolicy(patterns...)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultEmailPolicy returns the policy for DefaultAllowedDomains.
func DefaultEmailPolicy() *EmailPolicy {
	return defaultEmailPolicy
}

// Patterns returns the normalized domain patterns.
func (p *EmailPolicy) Patterns() []string {
	out := make([]string, len(p.patterns))
	copy(out, p.patterns)
	return out
}

// Allows reports whether domain matches one of the patterns.
func (p *EmailPolicy) Allows(domain string) bool {
	domain = strings.ToLower(domain)
	for _, g := range p.globs {
		if g.Match(domain) {
			return true
		}
	}
	return false
}

// Parse trims, lower-cases and validates raw.
func (p *EmailPolicy) Parse(raw string) (Email, error) {
	if raw == "" {
		return Email{}, oops.Code(CodeEmailRequired).Errorf("El email es requerido")
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, oops.Code(CodeEmailRequired).Errorf("El email no puede estar vacío")
	}
	if !emailShape.MatchString(normalized) {
		return Email{}, oops.Code(CodeEmailFormat).With("email", normalized).Errorf("Formato de email inválido")
	}
	e := Email{value: normalized}
	if !p.Allows(e.Domain()) {
		return Email{}, oops.Code(CodeEmailDomain).
			With("domain", e.Domain()).
			Errorf("El email debe ser de dominio UCT (%s)", p.describe())
	}
	if len(normalized) > MaxEmailLength {
		return Email{}, oops.Code(CodeEmailTooLong).
			With("max", MaxEmailLength).
			Errorf("El email es demasiado largo")
	}
	return e, nil
}

func (p *EmailPolicy) describe() string {
	parts := make([]string, len(p.patterns))
	for i, pattern := range p.patterns {
		parts[i] = "@" + pattern
	}
	return strings.Join(parts, " o ")
}

// ParseEmail validates raw against DefaultEmailPolicy.
func ParseEmail(raw string) (Email, error) {
	return defaultEmailPolicy.Parse(raw)
}

// restoreEmail normalizes a stored address without applying the domain
// allow-list, so users registered under a previous policy still load.
func restoreEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, oops.Code(CodeEmailRequired).Errorf("El email es requerido")
	}
	if !emailShape.MatchString(normalized) || len(normalized) > MaxEmailLength {
		return Email{}, oops.Code(CodeEmailFormat).With("email", normalized).Errorf("Formato de email inválido")
	}
	return Email{value: normalized}, nil
}
