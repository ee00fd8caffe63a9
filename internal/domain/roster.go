package domain

import "strings"

// Member is one canonical roster identity plus the nicknames, diminutives
// and misspellings that should resolve to it.
type Member struct {
	Name    string
	Aliases []string
}

// Roster is the fixed, ordered set of canonical participant identities that
// determines auto-close. Immutable for the lifetime of a session.
type Roster struct {
	names       []string
	aliases     map[string]string // lower-cased alias -> canonical name
	noAutoClose bool
}

// NewRoster builds a roster from members. Each canonical name matches
// itself case-insensitively in addition to its declared aliases.
// Auto-close is enabled.
func NewRoster(members []Member) Roster {
	r := Roster{
		names:   make([]string, 0, len(members)),
		aliases: make(map[string]string),
	}
	for _, m := range members {
		r.names = append(r.names, m.Name)
		r.aliases[strings.ToLower(m.Name)] = m.Name
		for _, alias := range m.Aliases {
			r.aliases[strings.ToLower(strings.TrimSpace(alias))] = m.Name
		}
	}
	return r
}

// WithoutAutoClose returns a copy of the roster whose completion never
// closes a session; sessions then close manually only.
func (r Roster) WithoutAutoClose() Roster {
	r.noAutoClose = true
	return r
}

// AutoCloses reports whether roster completion should close the session.
func (r Roster) AutoCloses() bool {
	return !r.noAutoClose
}

// Names returns the canonical identities in roster order.
func (r Roster) Names() []string {
	return append([]string(nil), r.names...)
}

// Size returns the number of roster members.
func (r Roster) Size() int {
	return len(r.names)
}

// Normalize maps free-form name input to a canonical roster identity.
// Matching trims and lower-cases; the returned canonical name keeps roster
// casing. Unknown input is returned trimmed with its original casing so an
// unrecognized contributor becomes their own identity rather than an error.
func (r Roster) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if canonical, ok := r.aliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Complete reports whether every roster member appears in participants.
func (r Roster) Complete(participants []string) bool {
	if len(r.names) == 0 {
		return false
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		seen[p] = true
	}
	for _, name := range r.names {
		if !seen[name] {
			return false
		}
	}
	return true
}
