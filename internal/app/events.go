package app

import "cadaver/internal/domain"

// EventKind identifies emitted session events for Nakama dispatch.
type EventKind string

const (
	EventSessionStarted EventKind = "session_started"
	EventVerseAdded     EventKind = "verse_added"
	EventRoundAdded     EventKind = "round_added"
	EventSessionClosed  EventKind = "session_closed"
	EventPoemPublished  EventKind = "poem_published"
	EventSessionReset   EventKind = "session_reset"
)

// Close reasons carried in SessionClosedPayload.
const (
	CloseReasonRosterComplete = "roster_complete"
	CloseReasonManual         = "manual"
)

// Event is a session event broadcast to every connected client.
type Event struct {
	Kind    EventKind
	Payload any
}

type SessionStartedPayload struct {
	CreatedBy string
}

type VerseAddedPayload struct {
	Participant string
	Round       int
	Verse       string
}

type RoundAddedPayload struct {
	Round int
}

type SessionClosedPayload struct {
	Reason string
}

type PoemPublishedPayload struct {
	Poem string
	Key  string
}

type SessionResetPayload struct {
	Phase domain.Phase
}
