package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cadaver/internal/domain"
)

func testService() *Service {
	return NewService(domain.NewRoster([]domain.Member{
		{Name: "Valen", Aliases: []string{"vale", "valentina"}},
		{Name: "Alexia", Aliases: []string{"ale"}},
		{Name: "Bicha", Aliases: []string{"sofia"}},
		{Name: "Camila", Aliases: []string{"cami"}},
		{Name: "Maca", Aliases: []string{"macarena"}},
	}))
}

type fakePublisher struct {
	poem string
	key  string
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, poem string) (string, error) {
	f.poem = poem
	return f.key, f.err
}

func TestStartSessionNormalizesInitiator(t *testing.T) {
	svc := testService()

	sess, events := svc.StartSession("  vale ")

	if sess.CreatedBy != "Valen" {
		t.Fatalf("created by = %q, want Valen", sess.CreatedBy)
	}
	if sess.Phase != domain.PhaseOpen {
		t.Fatalf("phase = %s, want open", sess.Phase)
	}
	if len(events) != 1 || events[0].Kind != EventSessionStarted {
		t.Fatalf("events = %+v, want one session_started", events)
	}
	payload := events[0].Payload.(SessionStartedPayload)
	if payload.CreatedBy != "Valen" {
		t.Fatalf("payload created by = %q, want Valen", payload.CreatedBy)
	}
}

func TestAddVerseEmitsVerseAdded(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")

	sess, events := svc.AddVerse(sess, "ale", "  hola  ")

	if len(events) != 1 || events[0].Kind != EventVerseAdded {
		t.Fatalf("events = %+v, want one verse_added", events)
	}
	payload := events[0].Payload.(VerseAddedPayload)
	if payload.Participant != "Alexia" || payload.Round != 1 || payload.Verse != "hola" {
		t.Fatalf("payload = %+v", payload)
	}
	if !reflect.DeepEqual(sess.Participants, []string{"Valen", "Alexia"}) {
		t.Fatalf("participants = %v", sess.Participants)
	}
}

func TestAddVerseAutoCloseDisabledEmitsNoClose(t *testing.T) {
	svc := NewService(testService().Roster().WithoutAutoClose())
	sess, _ := svc.StartSession("vale")

	for _, name := range []string{"vale", "ale", "sofia", "cami", "macarena"} {
		var events []Event
		sess, events = svc.AddVerse(sess, name, "verso")
		for _, ev := range events {
			if ev.Kind == EventSessionClosed {
				t.Fatalf("session_closed emitted for %s with auto-close disabled", name)
			}
		}
	}

	if sess.Phase != domain.PhaseOpen {
		t.Fatalf("phase = %s, want open", sess.Phase)
	}
}

func TestAddVerseEmptyTextEmitsNothing(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")

	next, events := svc.AddVerse(sess, "ale", "   ")

	if len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
	if !reflect.DeepEqual(next, sess) {
		t.Fatalf("session changed on empty verse: %+v", next)
	}
}

func TestAddVerseAutoCloseEmitsSessionClosed(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")

	var events []Event
	for _, name := range []string{"vale", "ale", "sofia", "cami"} {
		sess, events = svc.AddVerse(sess, name, "verso")
		for _, ev := range events {
			if ev.Kind == EventSessionClosed {
				t.Fatalf("closed early after %s", name)
			}
		}
	}

	sess, events = svc.AddVerse(sess, "macarena", "verso final")

	if sess.Phase != domain.PhaseClosed {
		t.Fatalf("phase = %s, want closed", sess.Phase)
	}
	if len(events) != 2 || events[0].Kind != EventVerseAdded || events[1].Kind != EventSessionClosed {
		t.Fatalf("events = %+v, want verse_added then session_closed", events)
	}
	payload := events[1].Payload.(SessionClosedPayload)
	if payload.Reason != CloseReasonRosterComplete {
		t.Fatalf("reason = %q, want %q", payload.Reason, CloseReasonRosterComplete)
	}
}

func TestEndToEndScenario(t *testing.T) {
	svc := testService()

	sess, _ := svc.StartSession("vale")
	if !reflect.DeepEqual(sess.Participants, []string{"Valen"}) {
		t.Fatalf("participants = %v, want [Valen]", sess.Participants)
	}

	sess, _ = svc.AddVerse(sess, "ale", "  hola  ")
	if !reflect.DeepEqual(sess.Rounds[0].Verses, []string{"hola"}) {
		t.Fatalf("round 1 verses = %v, want [hola]", sess.Rounds[0].Verses)
	}
	if !reflect.DeepEqual(sess.Participants, []string{"Valen", "Alexia"}) {
		t.Fatalf("participants = %v, want [Valen Alexia]", sess.Participants)
	}

	for _, name := range []string{"Bicha", "Camila", "Maca"} {
		sess, _ = svc.AddVerse(sess, name, "verso de "+name)
	}

	if sess.Phase != domain.PhaseClosed {
		t.Fatalf("phase = %s, want closed after the fifth distinct participant", sess.Phase)
	}
}

func TestAdvanceRound(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")

	sess, events := svc.AdvanceRound(sess)

	if sess.CurrentRound != 2 || len(sess.Rounds) != 2 {
		t.Fatalf("current round = %d, rounds = %d", sess.CurrentRound, len(sess.Rounds))
	}
	if len(events) != 1 || events[0].Kind != EventRoundAdded {
		t.Fatalf("events = %+v, want one round_added", events)
	}
	if payload := events[0].Payload.(RoundAddedPayload); payload.Round != 2 {
		t.Fatalf("payload round = %d, want 2", payload.Round)
	}
}

func TestCloseSessionIsIdempotent(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")

	sess, events := svc.CloseSession(sess)
	if len(events) != 1 || events[0].Kind != EventSessionClosed {
		t.Fatalf("events = %+v, want one session_closed", events)
	}
	if payload := events[0].Payload.(SessionClosedPayload); payload.Reason != CloseReasonManual {
		t.Fatalf("reason = %q, want %q", payload.Reason, CloseReasonManual)
	}

	sess, events = svc.CloseSession(sess)
	if sess.Phase != domain.PhaseClosed {
		t.Fatalf("phase = %s, want closed", sess.Phase)
	}
	if len(events) != 0 {
		t.Fatalf("second close emitted events: %+v", events)
	}
}

func TestFinalizePublishesAndResets(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")
	sess, _ = svc.AddVerse(sess, "vale", "a")
	sess, _ = svc.AddVerse(sess, "ale", "b")
	sess, _ = svc.AdvanceRound(sess)
	sess, _ = svc.AddVerse(sess, "sofia", "c")

	publisher := &fakePublisher{key: "poem_1"}
	next, events, err := svc.Finalize(context.Background(), sess, publisher)
	if err != nil {
		t.Fatalf("finalize error: %v", err)
	}

	if publisher.poem != "a\nb\n\nc" {
		t.Fatalf("published poem = %q, want %q", publisher.poem, "a\nb\n\nc")
	}
	if next.Phase != domain.PhaseNotStarted {
		t.Fatalf("phase = %s, want not started after finalize", next.Phase)
	}
	if len(events) != 2 || events[0].Kind != EventPoemPublished || events[1].Kind != EventSessionReset {
		t.Fatalf("events = %+v, want poem_published then session_reset", events)
	}
	if payload := events[0].Payload.(PoemPublishedPayload); payload.Key != "poem_1" {
		t.Fatalf("payload key = %q, want poem_1", payload.Key)
	}
}

func TestFinalizePublishFailureStillResets(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")
	sess, _ = svc.AddVerse(sess, "vale", "a")

	publisher := &fakePublisher{err: errors.New("storage down")}
	next, events, err := svc.Finalize(context.Background(), sess, publisher)

	if err == nil {
		t.Fatal("expected publish error to surface")
	}
	if next.Phase != domain.PhaseNotStarted {
		t.Fatalf("phase = %s, reset must not depend on publish", next.Phase)
	}
	for _, ev := range events {
		if ev.Kind == EventPoemPublished {
			t.Fatal("poem_published must not be emitted on failure")
		}
	}
}

func TestFinalizeDoesNotRequireClosedSession(t *testing.T) {
	svc := testService()
	sess, _ := svc.StartSession("vale")
	sess, _ = svc.AddVerse(sess, "vale", "temprano")

	publisher := &fakePublisher{key: "poem_2"}
	if _, _, err := svc.Finalize(context.Background(), sess, publisher); err != nil {
		t.Fatalf("finalize on an open session must work: %v", err)
	}
	if publisher.poem != "temprano" {
		t.Fatalf("published poem = %q, want %q", publisher.poem, "temprano")
	}
}

func TestResetSession(t *testing.T) {
	svc := testService()

	sess, events := svc.ResetSession()

	if sess.Phase != domain.PhaseNotStarted || len(sess.Participants) != 0 {
		t.Fatalf("reset session = %+v", sess)
	}
	if len(events) != 1 || events[0].Kind != EventSessionReset {
		t.Fatalf("events = %+v, want one session_reset", events)
	}
}
