package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"escaperoom/internal/answer"
	"escaperoom/internal/models"
	"escaperoom/internal/validation"
)

func sessionKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}

// fakeStore mimics the conditional-write semantics of the session
// repository. When stale is set, the next Get returns that snapshot instead
// of the stored row, simulating a read that raced a concurrent write.
type fakeStore struct {
	sessions map[string]*models.Session
	stale    *models.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]*models.Session{}}
}

func (f *fakeStore) put(s *models.Session) {
	c := *s
	f.sessions[sessionKey(s.UserID, s.SessionID)] = &c
}

func (f *fakeStore) Get(userID, sessionID string) (*models.Session, error) {
	if f.stale != nil {
		s := *f.stale
		f.stale = nil
		return &s, nil
	}
	s, ok := f.sessions[sessionKey(userID, sessionID)]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (f *fakeStore) UpdateFields(userID, sessionID string, u models.SessionUpdate) error {
	s, ok := f.sessions[sessionKey(userID, sessionID)]
	if !ok {
		return errors.New("session not found")
	}
	if u.GameID != nil {
		s.GameID = *u.GameID
	}
	if u.CurrentPuzzleIndex != nil {
		s.CurrentPuzzleIndex = *u.CurrentPuzzleIndex
	}
	if u.PuzzleStarted != nil {
		s.PuzzleStarted = *u.PuzzleStarted
	}
	if u.PuzzleTimerActive != nil {
		s.PuzzleTimerActive = *u.PuzzleTimerActive
	}
	if u.FailuresOnPuzzle != nil {
		s.FailuresOnPuzzle = *u.FailuresOnPuzzle
	}
	if u.FailuresTotal != nil {
		s.FailuresTotal = *u.FailuresTotal
	}
	if u.PuzzlesCleared != nil {
		s.PuzzlesCleared = *u.PuzzlesCleared
	}
	if u.StartedAt != nil {
		t := *u.StartedAt
		s.StartedAt = &t
	}
	if u.ClearEndedAt {
		s.EndedAt = nil
	}
	return nil
}

func (f *fakeStore) Delete(userID, sessionID string) error {
	delete(f.sessions, sessionKey(userID, sessionID))
	return nil
}

func (f *fakeStore) AdvancePuzzle(userID, sessionID string, fromIndex, clearedDelta, failureDelta int) (bool, error) {
	s, ok := f.sessions[sessionKey(userID, sessionID)]
	if !ok || !s.PuzzleTimerActive || s.CurrentPuzzleIndex != fromIndex {
		return false, nil
	}
	s.CurrentPuzzleIndex++
	s.PuzzleStarted = false
	s.PuzzleTimerActive = false
	s.FailuresOnPuzzle = 0
	s.PuzzlesCleared += clearedDelta
	s.FailuresTotal += failureDelta
	return true, nil
}

func (f *fakeStore) RecordFailure(userID, sessionID string, fromFailures int) (bool, error) {
	s, ok := f.sessions[sessionKey(userID, sessionID)]
	if !ok || !s.PuzzleTimerActive || s.FailuresOnPuzzle != fromFailures {
		return false, nil
	}
	s.FailuresOnPuzzle++
	s.FailuresTotal++
	return true, nil
}

type fakeCatalog struct {
	games []*models.Game
}

func (f *fakeCatalog) GetByID(id string) (*models.Game, error) {
	for _, g := range f.games {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetByTitle(title string) (*models.Game, error) {
	want := answer.Normalize(title)
	for _, g := range f.games {
		if answer.Normalize(g.Title) == want {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) List() ([]models.Game, error) {
	var out []models.Game
	for _, g := range f.games {
		out = append(out, *g)
	}
	return out, nil
}

type fakeResults struct {
	appended []*models.Result
}

func (f *fakeResults) Append(r *models.Result) error {
	f.appended = append(f.appended, r)
	return nil
}

type fakeAuthoring struct {
	saved []*models.Game
	err   error
}

func (f *fakeAuthoring) SaveGame(g *models.Game) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, g)
	return nil
}

type fakeReporting struct {
	results []models.Result
	found   bool
}

func (f *fakeReporting) StudentResults(name, course, group string) ([]models.Result, bool, error) {
	return f.results, f.found, nil
}

type fakeNotifier struct {
	notified []*models.Result
}

func (f *fakeNotifier) GameFinished(userID string, r *models.Result) error {
	f.notified = append(f.notified, r)
	return nil
}

type fixture struct {
	engine    *Engine
	store     *fakeStore
	catalog   *fakeCatalog
	results   *fakeResults
	authoring *fakeAuthoring
	reporting *fakeReporting
	notifier  *fakeNotifier
}

func newFixture(games ...*models.Game) *fixture {
	f := &fixture{
		store:     newFakeStore(),
		catalog:   &fakeCatalog{games: games},
		results:   &fakeResults{},
		authoring: &fakeAuthoring{},
		reporting: &fakeReporting{},
		notifier:  &fakeNotifier{},
	}
	f.engine = New(f.store, f.catalog, f.results, f.authoring, f.reporting, f.notifier)
	f.engine.now = func() time.Time { return time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC) }
	return f
}

func (f *fixture) addSession(s *models.Session) {
	f.store.put(s)
}

func (f *fixture) session(t *testing.T, userID, sessionID string) *models.Session {
	t.Helper()
	s, ok := f.store.sessions[sessionKey(userID, sessionID)]
	if !ok {
		t.Fatalf("session %s/%s not in store", userID, sessionID)
	}
	c := *s
	return &c
}

func studentSession() *models.Session {
	return &models.Session{
		UserID:    "u1",
		SessionID: "s1",
		UserType:  models.UserTypeStudent,
		CreatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func event(eventType EventType) Event {
	return Event{Type: eventType, UserID: "u1", SessionID: "s1"}
}

func cipherTrial() *models.Game {
	return &models.Game{
		ID:             "g-cipher",
		Title:          "cipher-trial",
		NarrativeIntro: "A locked chest waits for you.",
		FailureBudget:  3,
		Puzzles: []models.Puzzle{
			{
				Kind:             models.PuzzleKindCipher,
				Instruction:      "Decode the word on the chest.",
				CorrectAnswer:    "llave",
				CipherKey:        3,
				Hints:            []string{"first hint"},
				EstimatedSeconds: 120,
			},
		},
	}
}

func twoPuzzleGame() *models.Game {
	return &models.Game{
		ID:             "g-two",
		Title:          "Twin Doors",
		NarrativeIntro: "Two doors, two riddles.",
		FailureBudget:  3,
		Puzzles: []models.Puzzle{
			{Kind: models.PuzzleKindRiddle, Instruction: "What has keys but opens no locks?", CorrectAnswer: "piano"},
			{Kind: models.PuzzleKindLogic, Instruction: "Two plus two?", CorrectAnswer: "four"},
		},
	}
}

func TestHandleWithoutSessionEndsTurn(t *testing.T) {
	f := newFixture()

	resp := f.engine.Handle(event(EventConfirmContinue))
	if !resp.EndSession {
		t.Error("expected missing session to end the turn")
	}
	if resp.Speech != msgNotAuthenticated {
		t.Errorf("speech = %q", resp.Speech)
	}
}

func TestLoadGameResetsSession(t *testing.T) {
	f := newFixture(twoPuzzleGame())
	s := studentSession()
	s.GameID = "old-game"
	s.CurrentPuzzleIndex = 5
	s.FailuresTotal = 9
	s.PuzzlesCleared = 4
	f.addSession(s)

	ev := event(EventLoadGame)
	ev.Title = "twin doors"
	resp := f.engine.Handle(ev)

	if resp.EndSession {
		t.Error("load must keep the turn open")
	}
	if resp.Directive == nil || resp.Directive.Action != ActionShowCover {
		t.Fatalf("directive = %+v, want show_cover", resp.Directive)
	}
	if !strings.Contains(resp.Speech, "Two doors, two riddles.") {
		t.Errorf("speech missing intro: %q", resp.Speech)
	}

	got := f.session(t, "u1", "s1")
	if got.GameID != "g-two" || got.CurrentPuzzleIndex != 0 {
		t.Errorf("session not reset: %+v", got)
	}
	if got.PuzzleStarted || got.PuzzleTimerActive {
		t.Error("first puzzle must wait for explicit confirmation")
	}
	if got.FailuresTotal != 0 || got.PuzzlesCleared != 0 || got.FailuresOnPuzzle != 0 {
		t.Errorf("counters not reset: %+v", got)
	}
	if got.StartedAt == nil {
		t.Error("expected started_at to be set")
	}
}

func TestLoadGameUnknownTitleLeavesSessionAlone(t *testing.T) {
	f := newFixture(twoPuzzleGame())
	f.addSession(studentSession())
	before := f.session(t, "u1", "s1")

	ev := event(EventLoadGame)
	ev.Title = "no such game"
	resp := f.engine.Handle(ev)

	if resp.EndSession {
		t.Error("miss must keep the turn open")
	}
	if !strings.Contains(resp.Speech, "couldn't find a game") {
		t.Errorf("speech = %q", resp.Speech)
	}
	if after := f.session(t, "u1", "s1"); !reflect.DeepEqual(before, after) {
		t.Errorf("session mutated on a miss: %+v", after)
	}
}

func TestConfirmContinueStartsPuzzle(t *testing.T) {
	f := newFixture(cipherTrial())
	s := studentSession()
	s.GameID = "g-cipher"
	f.addSession(s)

	resp := f.engine.Handle(event(EventConfirmContinue))

	if resp.Directive == nil || resp.Directive.Action != ActionShowPuzzle {
		t.Fatalf("directive = %+v, want show_puzzle", resp.Directive)
	}
	payload, ok := resp.Directive.Payload.(PuzzlePayload)
	if !ok {
		t.Fatalf("payload type %T", resp.Directive.Payload)
	}
	if payload.Kind != models.PuzzleKindCipher || payload.EstimatedSeconds != 120 {
		t.Errorf("payload = %+v", payload)
	}
	// Obfuscated, never the plain answer.
	if payload.Data == "" || payload.Data == "llave" || payload.Data == "LLAVE" {
		t.Errorf("cipher data = %q", payload.Data)
	}

	got := f.session(t, "u1", "s1")
	if !got.PuzzleStarted || !got.PuzzleTimerActive {
		t.Errorf("puzzle not started: %+v", got)
	}
}

func TestStartCurrentPuzzleIsIdempotent(t *testing.T) {
	f := newFixture(cipherTrial())
	s := studentSession()
	s.GameID = "g-cipher"
	f.addSession(s)

	f.engine.Handle(event(EventConfirmContinue))
	before := f.session(t, "u1", "s1")

	resp := f.engine.Handle(event(EventConfirmContinue))
	if resp.Speech != msgAlreadyActive || resp.EndSession {
		t.Errorf("second confirm = %+v", resp)
	}
	if after := f.session(t, "u1", "s1"); !reflect.DeepEqual(before, after) {
		t.Errorf("second confirm mutated the session: %+v", after)
	}
}

func TestConfirmContinueWithoutGame(t *testing.T) {
	f := newFixture()
	f.addSession(studentSession())

	resp := f.engine.Handle(event(EventConfirmContinue))
	if resp.Speech != msgNoGameLoaded {
		t.Errorf("speech = %q", resp.Speech)
	}
}

// Scenario: one puzzle, budget 3, one hint. Three wrong answers walk the
// hint ladder, force the advance, and finalize with no puzzle cleared.
func TestFailingOutOfTheOnlyPuzzle(t *testing.T) {
	f := newFixture(cipherTrial())
	s := studentSession()
	s.GameID = "g-cipher"
	f.addSession(s)
	f.engine.Handle(event(EventConfirmContinue))

	wrong := event(EventSubmitAnswer)
	wrong.Answer = "candado"

	// First wrong attempt reveals the first hint.
	resp := f.engine.Handle(wrong)
	if !strings.Contains(resp.Speech, "first hint") {
		t.Errorf("speech missing hint: %q", resp.Speech)
	}
	if resp.Directive == nil || resp.Directive.Action != ActionShowHint {
		t.Fatalf("directive = %+v, want show_hint", resp.Directive)
	}
	got := f.session(t, "u1", "s1")
	if got.CurrentPuzzleIndex != 0 || got.FailuresOnPuzzle != 1 {
		t.Errorf("after first failure: %+v", got)
	}

	// Second wrong attempt: hints exhausted, generic retry.
	resp = f.engine.Handle(wrong)
	if resp.Directive != nil || resp.EndSession {
		t.Errorf("retry response = %+v", resp)
	}
	got = f.session(t, "u1", "s1")
	if got.FailuresOnPuzzle != 2 {
		t.Errorf("after second failure: %+v", got)
	}
	if got.PuzzleStarted && got.FailuresOnPuzzle >= 3 {
		t.Error("stored failure count reached the budget while the puzzle was active")
	}

	// Third wrong attempt crosses the budget: forced advance, and with a
	// single puzzle the game finalizes.
	resp = f.engine.Handle(wrong)
	if !resp.EndSession {
		t.Error("expected the game to end")
	}
	if !strings.Contains(resp.Speech, "run out of attempts") {
		t.Errorf("speech = %q", resp.Speech)
	}
	if _, ok := f.store.sessions[sessionKey("u1", "s1")]; ok {
		t.Error("session must be deleted on finalize")
	}
	if len(f.results.appended) != 1 {
		t.Fatalf("results = %d, want 1", len(f.results.appended))
	}
	result := f.results.appended[0]
	if result.PuzzlesCleared != 0 || result.FailuresTotal != 3 {
		t.Errorf("result = cleared %d, failures %d; want 0, 3", result.PuzzlesCleared, result.FailuresTotal)
	}
	if len(f.notifier.notified) != 1 {
		t.Error("expected a completion notification")
	}
}

// Scenario: two puzzles, solve the first. The response is a continuation
// prompt, not a finalize, and confirming starts puzzle one.
func TestSolvingFirstOfTwoPuzzles(t *testing.T) {
	f := newFixture(twoPuzzleGame())
	s := studentSession()
	s.GameID = "g-two"
	f.addSession(s)
	f.engine.Handle(event(EventConfirmContinue))

	ev := event(EventSubmitAnswer)
	ev.Answer = "a piano"
	resp := f.engine.Handle(ev)

	if resp.EndSession {
		t.Fatal("two-puzzle game must not finalize after the first solve")
	}
	if !strings.Contains(resp.Speech, promptContinue) {
		t.Errorf("speech missing continuation prompt: %q", resp.Speech)
	}
	got := f.session(t, "u1", "s1")
	if got.PuzzlesCleared != 1 || got.CurrentPuzzleIndex != 1 {
		t.Errorf("after solve: %+v", got)
	}
	if got.PuzzleStarted || got.PuzzleTimerActive {
		t.Error("next puzzle must wait for confirmation")
	}

	resp = f.engine.Handle(event(EventConfirmContinue))
	if resp.Directive == nil || resp.Directive.Action != ActionShowPuzzle {
		t.Fatalf("directive = %+v, want show_puzzle", resp.Directive)
	}
	payload := resp.Directive.Payload.(PuzzlePayload)
	if payload.Instruction != "Two plus two?" {
		t.Errorf("wrong puzzle started: %+v", payload)
	}
}

func TestAnswerWithoutActivePuzzleLeavesSessionAlone(t *testing.T) {
	f := newFixture(twoPuzzleGame())
	s := studentSession()
	s.GameID = "g-two"
	f.addSession(s)
	before := f.session(t, "u1", "s1")

	ev := event(EventSubmitAnswer)
	ev.Answer = "piano"
	resp := f.engine.Handle(ev)

	if resp.Speech != msgNoActivePuzzle || resp.EndSession {
		t.Errorf("response = %+v", resp)
	}
	if after := f.session(t, "u1", "s1"); !reflect.DeepEqual(before, after) {
		t.Errorf("session mutated: %+v", after)
	}
}

func TestTimeoutAdvancesWithoutCountingAnAttempt(t *testing.T) {
	f := newFixture(twoPuzzleGame())
	s := studentSession()
	s.GameID = "g-two"
	f.addSession(s)
	f.engine.Handle(event(EventConfirmContinue))

	resp := f.engine.Handle(event(EventTimeout))

	if resp.EndSession {
		t.Error("one puzzle remains, turn must stay open")
	}
	if !strings.Contains(resp.Speech, "Time is up") {
		t.Errorf("speech = %q", resp.Speech)
	}
	got := f.session(t, "u1", "s1")
	if got.CurrentPuzzleIndex != 1 {
		t.Errorf("index = %d, want 1", got.CurrentPuzzleIndex)
	}
	if got.FailuresTotal != 0 || got.FailuresOnPuzzle != 0 || got.PuzzlesCleared != 0 {
		t.Errorf("timeout must not touch counters: %+v", got)
	}
}

// A correct answer and a timeout race for the same puzzle. The loser reads a
// stale session but must not advance the index a second time.
func TestLateTimeoutAfterAnswerAdvancesOnce(t *testing.T) {
	game := twoPuzzleGame()
	f := newFixture(game)
	s := studentSession()
	s.GameID = "g-two"
	f.addSession(s)
	f.engine.Handle(event(EventConfirmContinue))

	// Both events observe the same pre-advance snapshot.
	stale := f.session(t, "u1", "s1")

	ev := event(EventSubmitAnswer)
	ev.Answer = "piano"
	resp := f.engine.Handle(ev)
	if resp.EndSession {
		t.Fatal("first resolution should prompt to continue")
	}

	f.store.stale = stale
	resp = f.engine.Handle(event(EventTimeout))
	if resp.Speech != msgAlreadyResolved {
		t.Errorf("late timeout speech = %q", resp.Speech)
	}

	got := f.session(t, "u1", "s1")
	if got.CurrentPuzzleIndex != 1 {
		t.Errorf("index = %d, want exactly 1 advance", got.CurrentPuzzleIndex)
	}
	if got.PuzzlesCleared != 1 || got.FailuresTotal != 0 {
		t.Errorf("counters = %+v", got)
	}
}

func TestLateAnswerAfterTimeoutAdvancesOnce(t *testing.T) {
	f := newFixture(twoPuzzleGame())
	s := studentSession()
	s.GameID = "g-two"
	f.addSession(s)
	f.engine.Handle(event(EventConfirmContinue))

	stale := f.session(t, "u1", "s1")

	f.engine.Handle(event(EventTimeout))

	f.store.stale = stale
	ev := event(EventSubmitAnswer)
	ev.Answer = "piano"
	resp := f.engine.Handle(ev)
	if resp.Speech != msgAlreadyResolved {
		t.Errorf("late answer speech = %q", resp.Speech)
	}

	got := f.session(t, "u1", "s1")
	if got.CurrentPuzzleIndex != 1 {
		t.Errorf("index = %d, want exactly 1 advance", got.CurrentPuzzleIndex)
	}
	if got.PuzzlesCleared != 0 {
		t.Errorf("late answer must not score: %+v", got)
	}
}

func TestGameVanishedMidSessionFinalizes(t *testing.T) {
	f := newFixture()
	s := studentSession()
	s.GameID = "gone"
	s.PuzzleStarted = true
	s.PuzzleTimerActive = true
	s.PuzzlesCleared = 2
	f.addSession(s)

	ev := event(EventSubmitAnswer)
	ev.Answer = "anything"
	resp := f.engine.Handle(ev)

	if !resp.EndSession {
		t.Error("vanished game must force finalize")
	}
	if len(f.results.appended) != 1 || f.results.appended[0].PuzzlesCleared != 2 {
		t.Errorf("results = %+v", f.results.appended)
	}
	if _, ok := f.store.sessions[sessionKey("u1", "s1")]; ok {
		t.Error("session must be deleted")
	}
}

func TestEditorRequiresStaff(t *testing.T) {
	f := newFixture()
	f.addSession(studentSession())

	resp := f.engine.Handle(event(EventOpenEditor))
	if resp.Speech != msgStaffOnly {
		t.Errorf("speech = %q", resp.Speech)
	}

	ev := event(EventSaveGame)
	ev.Game = twoPuzzleGame()
	resp = f.engine.Handle(ev)
	if resp.Speech != msgStaffOnly {
		t.Errorf("speech = %q", resp.Speech)
	}
}

func TestOpenEditorListsGames(t *testing.T) {
	f := newFixture(cipherTrial(), twoPuzzleGame())
	s := studentSession()
	s.UserType = models.UserTypeInstructor
	f.addSession(s)

	resp := f.engine.Handle(event(EventOpenEditor))
	if resp.Directive == nil || resp.Directive.Action != ActionEditorOpen {
		t.Fatalf("directive = %+v, want editor_open", resp.Directive)
	}
	summaries := resp.Directive.Payload.([]GameSummary)
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
}

func TestSaveGameReportsValidationProblems(t *testing.T) {
	f := newFixture()
	s := studentSession()
	s.UserType = models.UserTypeCoordinator
	f.addSession(s)
	f.authoring.err = validation.ValidationError{Field: "title", Message: "title is required"}

	ev := event(EventSaveGame)
	ev.Game = &models.Game{}
	resp := f.engine.Handle(ev)

	if !strings.Contains(resp.Speech, "title is required") {
		t.Errorf("speech = %q", resp.Speech)
	}
	if resp.EndSession {
		t.Error("turn must stay open after a rejected save")
	}
}

func TestSaveGameSuccess(t *testing.T) {
	f := newFixture()
	s := studentSession()
	s.UserType = models.UserTypeInstructor
	f.addSession(s)

	ev := event(EventSaveGame)
	ev.Game = twoPuzzleGame()
	resp := f.engine.Handle(ev)

	if resp.Directive == nil || resp.Directive.Action != ActionSaveOK {
		t.Fatalf("directive = %+v, want save_ok", resp.Directive)
	}
	if len(f.authoring.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(f.authoring.saved))
	}
}

func TestQueryResults(t *testing.T) {
	f := newFixture()
	s := studentSession()
	s.UserType = models.UserTypeInstructor
	f.addSession(s)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.reporting.found = true
	f.reporting.results = []models.Result{
		{UserID: "u2", PuzzlesCleared: 3, FailuresTotal: 1, StartedAt: start, EndedAt: start.Add(8 * time.Minute)},
	}

	ev := event(EventQueryResults)
	ev.StudentName = "Lucia"
	resp := f.engine.Handle(ev)

	if resp.Directive == nil || resp.Directive.Action != ActionShowResults {
		t.Fatalf("directive = %+v, want show_results", resp.Directive)
	}
	entries := resp.Directive.Payload.([]ResultEntry)
	if len(entries) != 1 || entries[0].ElapsedSeconds != 480 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestQueryResultsUnknownStudent(t *testing.T) {
	f := newFixture()
	s := studentSession()
	s.UserType = models.UserTypeInstructor
	f.addSession(s)

	ev := event(EventQueryResults)
	ev.StudentName = "Nadie"
	resp := f.engine.Handle(ev)
	if !strings.Contains(resp.Speech, "couldn't find a student") {
		t.Errorf("speech = %q", resp.Speech)
	}
}

func TestCloseSessionDeletesAndEndsTurn(t *testing.T) {
	f := newFixture()
	f.addSession(studentSession())

	resp := f.engine.Handle(event(EventCloseSession))
	if !resp.EndSession {
		t.Error("expected end of turn")
	}
	if resp.Directive == nil || resp.Directive.Action != ActionLogout {
		t.Fatalf("directive = %+v, want logout", resp.Directive)
	}
	if _, ok := f.store.sessions[sessionKey("u1", "s1")]; ok {
		t.Error("session must be deleted")
	}
}
