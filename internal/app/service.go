package app

import (
	"context"
	"strings"

	"cadaver/internal/domain"
	"cadaver/internal/ports"
)

// Service contains the session use-cases: it resolves acting participants
// through the roster, runs the pure domain transitions and reports what
// happened as events. The caller owns the snapshot and its persistence.
type Service struct {
	roster domain.Roster
}

// NewService constructs a Service around a fixed roster.
func NewService(roster domain.Roster) *Service {
	return &Service{roster: roster}
}

// Roster exposes the roster the service was built with.
func (s *Service) Roster() domain.Roster {
	return s.roster
}

// StartSession begins a fresh game created by rawInitiator, unconditionally
// replacing any prior session.
func (s *Service) StartSession(rawInitiator string) (domain.Session, []Event) {
	name := s.roster.Normalize(rawInitiator)
	next := domain.Start(name)

	return next, []Event{{
		Kind:    EventSessionStarted,
		Payload: SessionStartedPayload{CreatedBy: name},
	}}
}

// AddVerse appends rawText as a verse by rawName. Whitespace-only text is a
// silent no-op with no events. When the verse completes the roster the
// session auto-closes and a session_closed event follows the verse_added.
func (s *Service) AddVerse(sess domain.Session, rawName, rawText string) (domain.Session, []Event) {
	if strings.TrimSpace(rawText) == "" {
		return sess, nil
	}

	name := s.roster.Normalize(rawName)
	next := domain.AddVerse(sess, name, rawText, s.roster)

	round := next.CurrentRound
	verses := next.Rounds[round-1].Verses
	events := []Event{{
		Kind: EventVerseAdded,
		Payload: VerseAddedPayload{
			Participant: name,
			Round:       round,
			Verse:       verses[len(verses)-1],
		},
	}}

	if sess.Phase != domain.PhaseClosed && next.Phase == domain.PhaseClosed {
		events = append(events, Event{
			Kind:    EventSessionClosed,
			Payload: SessionClosedPayload{Reason: CloseReasonRosterComplete},
		})
	}

	return next, events
}

// AdvanceRound appends a new empty round and makes it current.
func (s *Service) AdvanceRound(sess domain.Session) (domain.Session, []Event) {
	next := domain.AddRound(sess)

	return next, []Event{{
		Kind:    EventRoundAdded,
		Payload: RoundAddedPayload{Round: next.CurrentRound},
	}}
}

// CloseSession marks the session closed without publishing. Idempotent; a
// second close emits no event.
func (s *Service) CloseSession(sess domain.Session) (domain.Session, []Event) {
	next := domain.Close(sess)
	if sess.Phase == domain.PhaseClosed {
		return next, nil
	}

	return next, []Event{{
		Kind:    EventSessionClosed,
		Payload: SessionClosedPayload{Reason: CloseReasonManual},
	}}
}

// Finalize composes the poem, hands it to the publisher and resets the
// session. The reset happens regardless of the publish outcome; a publish
// error is returned for the caller to report, never to roll back.
// Finalizing does not require the session to be closed first.
func (s *Service) Finalize(ctx context.Context, sess domain.Session, publisher ports.Publisher) (domain.Session, []Event, error) {
	poem := domain.Compose(sess)

	var events []Event
	var publishErr error
	if publisher != nil {
		key, err := publisher.Publish(ctx, poem)
		if err != nil {
			publishErr = err
		} else {
			events = append(events, Event{
				Kind:    EventPoemPublished,
				Payload: PoemPublishedPayload{Poem: poem, Key: key},
			})
		}
	}

	next, resetEvents := s.ResetSession()
	events = append(events, resetEvents...)
	return next, events, publishErr
}

// ResetSession returns the zero-value session.
func (s *Service) ResetSession() (domain.Session, []Event) {
	next := domain.Reset()

	return next, []Event{{
		Kind:    EventSessionReset,
		Payload: SessionResetPayload{Phase: next.Phase},
	}}
}
