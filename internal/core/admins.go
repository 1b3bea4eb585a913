package core

import (
	"sort"
	"strings"
)

// AdminSet is the fixed set of administrator emails, resolved once at startup
type AdminSet struct {
	emails map[string]struct{}
}

func NewAdminSet(emails []string) AdminSet {
	set := AdminSet{emails: make(map[string]struct{}, len(emails))}
	for _, email := range emails {
		if normalized := normalizeEmail(email); normalized != "" {
			set.emails[normalized] = struct{}{}
		}
	}
	return set
}

// Contains matches case-insensitively
func (a AdminSet) Contains(email string) bool {
	_, ok := a.emails[normalizeEmail(email)]
	return ok
}

// Emails returns the admin addresses in sorted order
func (a AdminSet) Emails() []string {
	out := make([]string, 0, len(a.emails))
	for email := range a.emails {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
