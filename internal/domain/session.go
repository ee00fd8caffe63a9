package domain

// Phase represents the lifecycle stage of a session.
type Phase string

const (
	// PhaseNotStarted indicates no game is in progress.
	PhaseNotStarted Phase = "not_started"
	// PhaseOpen indicates a game is actively collecting verses.
	PhaseOpen Phase = "open"
	// PhaseClosed indicates the session stopped accepting roster credit,
	// either by hand or because every roster member contributed.
	PhaseClosed Phase = "closed"
)

// Round is a numbered, ordered collection of verses contributed during one
// phase of the game. Verses are trimmed, non-empty, append-only.
type Round struct {
	Number int      `json:"number"`
	Verses []string `json:"verses"`
}

// Session captures the domain state for the single live game instance.
// Participants keep insertion order for display; membership has set
// semantics. Round numbers are contiguous from 1 and CurrentRound always
// matches the last round's number.
type Session struct {
	Phase        Phase    `json:"phase"`
	CreatedBy    string   `json:"created_by"`
	Participants []string `json:"participants"`
	Rounds       []Round  `json:"rounds"`
	CurrentRound int      `json:"current_round"`
}

// NewSession returns the zero-value session: not started, no participants,
// one empty round numbered 1.
func NewSession() Session {
	return Session{
		Phase:        PhaseNotStarted,
		Participants: []string{},
		Rounds:       []Round{{Number: 1, Verses: []string{}}},
		CurrentRound: 1,
	}
}

// Clone returns a deep copy so transitions never alias the input snapshot.
func (s Session) Clone() Session {
	out := s
	out.Participants = append([]string(nil), s.Participants...)
	out.Rounds = make([]Round, len(s.Rounds))
	for i, r := range s.Rounds {
		out.Rounds[i] = Round{
			Number: r.Number,
			Verses: append([]string(nil), r.Verses...),
		}
	}
	return out
}

// HasParticipant reports whether name already contributed.
func (s Session) HasParticipant(name string) bool {
	for _, p := range s.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// mustCurrentRound returns the round matching CurrentRound. A missing round
// means a transition bug, not recoverable input.
func (s *Session) mustCurrentRound() *Round {
	for i := range s.Rounds {
		if s.Rounds[i].Number == s.CurrentRound {
			return &s.Rounds[i]
		}
	}
	panic("domain: no round matches the current round number")
}
