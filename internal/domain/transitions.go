package domain

import "strings"

// Transitions are pure: each one takes the current snapshot and returns a
// fresh one, leaving the input untouched. Names are expected to be
// canonical already (the app layer runs Roster.Normalize first).

// Start returns a fresh open session created by name, unconditionally
// replacing whatever came before.
func Start(name string) Session {
	s := NewSession()
	s.Phase = PhaseOpen
	s.CreatedBy = name
	s.Participants = []string{name}
	return s
}

// AddVerse appends a trimmed verse to the current round and credits name as
// a participant. Whitespace-only text is a no-op, not an error. When the
// participant set covers the whole roster the session auto-closes, unless
// the roster has auto-close disabled; once closed it never reopens here.
// Closed sessions still accept verses: Close is a soft lock and a late
// verse still lands in the poem.
func AddVerse(s Session, name, text string, roster Roster) Session {
	verse := strings.TrimSpace(text)
	if verse == "" {
		return s
	}

	next := s.Clone()
	round := next.mustCurrentRound()
	round.Verses = append(round.Verses, verse)

	if !next.HasParticipant(name) {
		next.Participants = append(next.Participants, name)
	}

	if next.Phase != PhaseClosed && roster.AutoCloses() && roster.Complete(next.Participants) {
		next.Phase = PhaseClosed
	}

	return next
}

// AddRound appends an empty round numbered CurrentRound+1 and advances the
// current round. No upper bound, and closed sessions can still gain rounds.
func AddRound(s Session) Session {
	next := s.Clone()
	next.CurrentRound++
	next.Rounds = append(next.Rounds, Round{
		Number: next.CurrentRound,
		Verses: []string{},
	})
	return next
}

// Close marks the session closed. Idempotent; every other field is kept.
func Close(s Session) Session {
	next := s.Clone()
	next.Phase = PhaseClosed
	return next
}

// Compose concatenates the session into one poem: verses within a round
// joined by a newline, rounds joined by a blank line, in round order.
func Compose(s Session) string {
	parts := make([]string, len(s.Rounds))
	for i, r := range s.Rounds {
		parts[i] = strings.Join(r.Verses, "\n")
	}
	return strings.Join(parts, "\n\n")
}

// Reset returns the zero-value session.
func Reset() Session {
	return NewSession()
}
