// Package policy provides skill filtering and access control for agent runs.
// Callers attach a Policy to the request context; the client serializes it
// into policy headers that scope what the agent may invoke for the run.
package policy

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is the type for context keys in this package.
type contextKey int

// Header constants for policy injection.
const (
	// AllowSkillsHeader specifies skills to allow (comma-separated).
	AllowSkillsHeader = "X-Agent-Allow-Skills"
	// DenySkillsHeader specifies skills to deny (comma-separated).
	DenySkillsHeader = "X-Agent-Deny-Skills"
)

const (
	policyKey contextKey = iota + 1
)

// Policy represents skill access control rules.
type Policy struct {
	// AllowList contains skills explicitly allowed. Empty means all allowed.
	AllowList []string
	// DenyList contains skills explicitly denied.
	DenyList []string
}

// FromHeaders parses policy headers and returns a Policy. Header values are
// expected to contain comma-separated skill names.
func FromHeaders(allowHeader, denyHeader string) *Policy {
	return &Policy{
		AllowList: parseSkillList(allowHeader),
		DenyList:  parseSkillList(denyHeader),
	}
}

// EncodeHeaders writes the policy to the given header set. Empty lists
// produce no headers.
func (p *Policy) EncodeHeaders(h http.Header) {
	if p == nil {
		return
	}
	if len(p.AllowList) > 0 {
		h.Set(AllowSkillsHeader, strings.Join(p.AllowList, ","))
	}
	if len(p.DenyList) > 0 {
		h.Set(DenySkillsHeader, strings.Join(p.DenyList, ","))
	}
}

// parseSkillList parses a comma-separated list of skill names.
func parseSkillList(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// NewContext adds the policy to the context.
func NewContext(ctx context.Context, p *Policy) context.Context {
	return context.WithValue(ctx, policyKey, p)
}

// FromContext retrieves the policy from context.
// Returns nil if no policy is set.
func FromContext(ctx context.Context) *Policy {
	p, _ := ctx.Value(policyKey).(*Policy)
	return p
}

// FilterSkills applies the policy to a list of skill identifiers and returns
// the allowed subset. If AllowList is non-empty, only skills in the allow
// list are included. Skills in DenyList are always excluded.
func FilterSkills(skills []string, p *Policy) []string {
	if p == nil {
		return skills
	}

	allowSet := make(map[string]struct{}, len(p.AllowList))
	for _, s := range p.AllowList {
		allowSet[s] = struct{}{}
	}
	denySet := make(map[string]struct{}, len(p.DenyList))
	for _, s := range p.DenyList {
		denySet[s] = struct{}{}
	}

	filtered := make([]string, 0, len(skills))
	for _, s := range skills {
		if _, denied := denySet[s]; denied {
			continue
		}
		if len(allowSet) > 0 {
			if _, allowed := allowSet[s]; !allowed {
				continue
			}
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// Allows reports whether the policy permits the given skill.
func (p *Policy) Allows(skill string) bool {
	if p == nil {
		return true
	}
	return len(FilterSkills([]string{skill}, p)) == 1
}
