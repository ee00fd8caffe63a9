package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"cadaver/internal/app"
	"cadaver/internal/config"
	"cadaver/internal/domain"
	"cadaver/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// notificationSender is the subset of runtime.NakamaModule used to notify
// participants about published poems.
type notificationSender interface {
	NotificationsSend(ctx context.Context, notifications []*runtime.NotificationSend) error
}

// MatchState holds the authoritative runtime state for the Nakama match
// handler. The match is the single owner of the live session: it loads the
// persisted snapshot once at init, applies transitions through the app
// service and persists every new snapshot after the fact.
type MatchState struct {
	Session domain.Session `json:"session"`
	Tick    int64          `json:"tick"`

	Presences map[string]runtime.Presence `json:"-"` // UserId -> Presence for targeted messaging

	// Contributors collects the user IDs that started the session or added
	// a verse, so publish notifications reach them even after they leave.
	Contributors map[string]struct{} `json:"-"`
	App          *app.Service        `json:"-"`
	Store        ports.SessionStore  `json:"-"`
	Publisher    ports.Publisher     `json:"-"`
}

// matchLabel is the advertised match label used by the join RPC.
type matchLabel struct {
	Open  bool   `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// Client request payloads. All wire payloads are JSON.
type startSessionRequest struct {
	Name string `json:"name"`
}

type addVerseRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Server event payloads.
type sessionStartedEvent struct {
	CreatedBy string `json:"created_by"`
}

type verseAddedEvent struct {
	Participant string `json:"participant"`
	Round       int    `json:"round"`
	Verse       string `json:"verse"`
}

type roundAddedEvent struct {
	Round int `json:"round"`
}

type sessionClosedEvent struct {
	Reason string `json:"reason"`
}

type poemPublishedEvent struct {
	Poem string `json:"poem"`
	Key  string `json:"key"`
}

type sessionResetEvent struct {
	Phase string `json:"phase"`
}

type sessionStateEvent struct {
	Session domain.Session `json:"session"`
}

type sessionErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return newMatchHandler(), nil
}

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// MatchInit is called when the match is created. It performs the one-time
// load of the persisted session; no save can run before it completes, so
// the stored snapshot is never clobbered by the initial default.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	configPath := "data/game_config.json"
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if path := env["cadaver_config_path"]; path != "" {
			configPath = path
		}
	}
	if err := config.LoadGameConfig(configPath); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	store := NewNakamaSessionStore(nk)
	state := &MatchState{
		Session:      domain.NewSession(),
		Presences:    make(map[string]runtime.Presence),
		Contributors: make(map[string]struct{}),
		App:          app.NewService(rosterFromConfig(config.GetRoster())),
		Store:        store,
		Publisher:    NewNakamaPoemPublisher(nk),
	}

	if session, found, err := store.Load(ctx); err != nil {
		logger.Error("MatchInit: Failed to load persisted session: %v", err)
	} else if found {
		logger.Info("MatchInit: Resumed persisted session (phase=%s, rounds=%d)", session.Phase, len(session.Rounds))
		state.Session = session
	}

	labelBytes, err := json.Marshal(buildLabel(state.Session))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt validates whether a presence may join. Anyone may watch
// or contribute; the roster only gates auto-close, not entry.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	if _, ok := state.(*MatchState); !ok {
		return state, false, "state not found"
	}
	return state, true, ""
}

// MatchJoin stores presences and sends the joiners the current session.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
	}

	mh.sendSessionState(matchState, dispatcher, logger, presences)
	return matchState
}

// MatchLeave drops presences. When nobody is left the match terminates; the
// persisted snapshot survives and the next join resumes it.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match; session stays persisted.")
		return nil
	}

	return matchState
}

// MatchLoop processes incoming messages for session flow.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartSession:
			mh.handleStartSession(ctx, matchState, dispatcher, logger, msg.GetUserId(), msg.GetUsername(), msg.GetData())
		case OpAddVerse:
			mh.handleAddVerse(ctx, matchState, dispatcher, logger, msg.GetUserId(), msg.GetUsername(), msg.GetData())
		case OpAddRound:
			mh.handleAddRound(ctx, matchState, dispatcher, logger)
		case OpCloseSession:
			mh.handleCloseSession(ctx, matchState, dispatcher, logger)
		case OpFinalize:
			mh.handleFinalize(ctx, matchState, dispatcher, logger, nk)
		case OpResetSession:
			mh.handleResetSession(ctx, matchState, dispatcher, logger)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	return matchState
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated.")
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

/* ---- message handlers ---- */

func (mh *matchHandler) handleStartSession(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID, username string, data []byte) {
	var req startSessionRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Warn("StartSession: Invalid request payload: %v", err)
			mh.sendError(state, dispatcher, logger, senderID, 400, "invalid payload")
			return
		}
	}
	name := req.Name
	if name == "" {
		name = username
	}

	next, events := state.App.StartSession(name)
	state.Session = next
	state.Contributors = map[string]struct{}{}
	if senderID != "" {
		state.Contributors[senderID] = struct{}{}
	}

	logger.Info("StartSession: Session started by %s", next.CreatedBy)
	mh.persist(ctx, state, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastEvents(ctx, state, dispatcher, logger, nil, events)
}

func (mh *matchHandler) handleAddVerse(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID, username string, data []byte) {
	var req addVerseRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Warn("AddVerse: Invalid request payload: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "invalid payload")
		return
	}
	name := req.Name
	if name == "" {
		name = username
	}

	next, events := state.App.AddVerse(state.Session, name, req.Text)
	if len(events) == 0 {
		// Whitespace-only verse: nothing changed, nothing to persist.
		return
	}
	state.Session = next
	if senderID != "" {
		state.Contributors[senderID] = struct{}{}
	}

	mh.persist(ctx, state, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastEvents(ctx, state, dispatcher, logger, nil, events)
}

func (mh *matchHandler) handleAddRound(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	next, events := state.App.AdvanceRound(state.Session)
	state.Session = next

	logger.Debug("AddRound: Advanced to round %d", next.CurrentRound)
	mh.persist(ctx, state, logger)
	mh.broadcastEvents(ctx, state, dispatcher, logger, nil, events)
}

func (mh *matchHandler) handleCloseSession(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	next, events := state.App.CloseSession(state.Session)
	state.Session = next

	mh.persist(ctx, state, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastEvents(ctx, state, dispatcher, logger, nil, events)
}

func (mh *matchHandler) handleFinalize(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, notifier notificationSender) {
	next, events, err := state.App.Finalize(ctx, state.Session, state.Publisher)
	if err != nil {
		logger.Error("Finalize: Failed to publish poem: %v", err)
	}
	state.Session = next

	if err := state.Store.Delete(ctx); err != nil {
		logger.Error("Finalize: Failed to delete persisted session: %v", err)
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastEvents(ctx, state, dispatcher, logger, notifier, events)
	state.Contributors = map[string]struct{}{}
}

func (mh *matchHandler) handleResetSession(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	next, events := state.App.ResetSession()
	state.Session = next

	logger.Info("ResetSession: Session cleared.")
	if err := state.Store.Delete(ctx); err != nil {
		logger.Error("ResetSession: Failed to delete persisted session: %v", err)
	}
	state.Contributors = map[string]struct{}{}
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastEvents(ctx, state, dispatcher, logger, nil, events)
}

/* ---- helpers ---- */

// persist stores the current snapshot. Failures are reported and otherwise
// ignored: the in-memory session stays the source of truth and is never
// rolled back over a storage error.
func (mh *matchHandler) persist(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if err := state.Store.Save(ctx, state.Session); err != nil {
		logger.Error("Failed to persist session: %v", err)
	}
}

func buildLabel(session domain.Session) matchLabel {
	return matchLabel{
		Open:  session.Phase != domain.PhaseClosed,
		Game:  "cadaver",
		Phase: string(session.Phase),
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(buildLabel(state.Session))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

// sendSessionState sends the full session snapshot, targeted when
// recipients are given, broadcast otherwise.
func (mh *matchHandler) sendSessionState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, recipients []runtime.Presence) {
	payload, err := json.Marshal(sessionStateEvent{Session: state.Session})
	if err != nil {
		logger.Error("Failed to marshal session state: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpSessionState, payload, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast session state: %v", err)
	}
}

// broadcastEvents converts app events to wire messages and dispatches them.
func (mh *matchHandler) broadcastEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, notifier notificationSender, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, notifier, ev)
	}
}

func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, notifier notificationSender, ev app.Event) {
	var opCode int64
	var payload any

	switch ev.Kind {
	case app.EventSessionStarted:
		opCode = OpSessionStarted
		p := ev.Payload.(app.SessionStartedPayload)
		payload = sessionStartedEvent{CreatedBy: p.CreatedBy}
	case app.EventVerseAdded:
		opCode = OpVerseAdded
		p := ev.Payload.(app.VerseAddedPayload)
		payload = verseAddedEvent{Participant: p.Participant, Round: p.Round, Verse: p.Verse}
	case app.EventRoundAdded:
		opCode = OpRoundAdded
		p := ev.Payload.(app.RoundAddedPayload)
		payload = roundAddedEvent{Round: p.Round}
	case app.EventSessionClosed:
		opCode = OpSessionClosed
		p := ev.Payload.(app.SessionClosedPayload)
		payload = sessionClosedEvent{Reason: p.Reason}
	case app.EventPoemPublished:
		opCode = OpPoemPublished
		p := ev.Payload.(app.PoemPublishedPayload)
		payload = poemPublishedEvent{Poem: p.Poem, Key: p.Key}
		mh.notifyPoemPublished(ctx, state, logger, notifier, p)
	case app.EventSessionReset:
		opCode = OpSessionReset
		p := ev.Payload.(app.SessionResetPayload)
		payload = sessionResetEvent{Phase: string(p.Phase)}
	default:
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	if err := dispatcher.BroadcastMessage(opCode, data, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// notifyPoemPublished leaves a persistent notification for everyone who
// contributed to the poem, connected or not. A match resumed from storage
// has no contributor record, so it falls back to connected presences.
func (mh *matchHandler) notifyPoemPublished(ctx context.Context, state *MatchState, logger runtime.Logger, notifier notificationSender, p app.PoemPublishedPayload) {
	if notifier == nil {
		return
	}

	targets := state.Contributors
	if len(targets) == 0 {
		targets = make(map[string]struct{}, len(state.Presences))
		for userID := range state.Presences {
			targets[userID] = struct{}{}
		}
	}
	if len(targets) == 0 {
		return
	}

	notifications := make([]*runtime.NotificationSend, 0, len(targets))
	for userID := range targets {
		notifications = append(notifications, &runtime.NotificationSend{
			UserID:  userID,
			Subject: "Poema publicado",
			Content: map[string]interface{}{
				"key": p.Key,
			},
			Code:       int(OpPoemPublished),
			Persistent: true,
		})
	}

	if err := notifier.NotificationsSend(ctx, notifications); err != nil {
		logger.Error("Failed to send poem notifications: %v", err)
	}
}

// sendError sends a sessionErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := json.Marshal(sessionErrorEvent{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	if err := dispatcher.BroadcastMessage(OpSessionError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error event: %v", err)
	}
}
