// Package engine owns the puzzle-session state machine: loading games,
// starting puzzles, judging answers, reacting to display timeouts, and
// finalizing sessions into result records. Each event is handled to
// completion; the only shared mutable state is the session store, and every
// advance goes through a conditional store write so overlapping events can
// never double-advance a puzzle.
package engine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"escaperoom/internal/answer"
	"escaperoom/internal/cipher"
	"escaperoom/internal/models"
	"escaperoom/internal/repository"
	"escaperoom/internal/speech"
	"escaperoom/internal/validation"
)

// SessionStore is the session persistence protocol the engine drives.
// AdvancePuzzle and RecordFailure are conditional writes: they apply only
// when the stored session still matches the state the caller read, and
// report whether the write was won.
type SessionStore interface {
	Get(userID, sessionID string) (*models.Session, error)
	UpdateFields(userID, sessionID string, update models.SessionUpdate) error
	Delete(userID, sessionID string) error
	AdvancePuzzle(userID, sessionID string, fromIndex, clearedDelta, failureDelta int) (bool, error)
	RecordFailure(userID, sessionID string, fromFailures int) (bool, error)
}

// GameCatalog looks up immutable game definitions.
type GameCatalog interface {
	GetByID(id string) (*models.Game, error)
	GetByTitle(title string) (*models.Game, error)
	List() ([]models.Game, error)
}

// ResultRecorder appends immutable result records.
type ResultRecorder interface {
	Append(result *models.Result) error
}

// Authoring persists games created through the editor.
type Authoring interface {
	SaveGame(game *models.Game) error
}

// Reporting looks up a student's finished games for staff queries. The found
// flag distinguishes an unknown student from one with no results yet.
type Reporting interface {
	StudentResults(name, course, group string) (results []models.Result, found bool, err error)
}

// Notifier is told about finished games. May be absent.
type Notifier interface {
	GameFinished(userID string, result *models.Result) error
}

// User-facing guidance for the out-of-turn and error paths. Every event
// yields a response; none of these mutate the session.
const (
	msgNotAuthenticated = "You need to sign in before playing. Open the display page and log in first."
	msgTryAgain         = "Something went wrong on my end. Please try that again."
	msgUnknownEvent     = "I didn't catch that. You can load a game, answer the current challenge, or say continue."
	msgNoGameLoaded     = "There is no game loaded yet. Tell me the title of the game you want to play."
	msgAlreadyActive    = "You already have an active challenge. Finish the current one first."
	msgNoActivePuzzle   = "There is no challenge waiting for an answer right now. Say continue to get the next one."
	msgAlreadyResolved  = "That challenge has already been resolved. Say continue to move on."
	msgStaffOnly        = "Only instructors and coordinators can do that."
	msgGameVanished     = "This game is no longer available, so we have to stop here."

	promptReady    = "Say yes when you are ready for the first challenge."
	promptContinue = "Do you want the next challenge?"
	promptAnswer   = "What is your answer?"
)

type handlerFunc func(session *models.Session, event Event) (Response, error)

// Engine is the session state machine. It is stateless between events; all
// progress lives in the session store.
type Engine struct {
	sessions  SessionStore
	games     GameCatalog
	results   ResultRecorder
	authoring Authoring
	reporting Reporting
	notifier  Notifier
	now       func() time.Time
	handlers  map[EventType]handlerFunc
}

// New creates the engine. notifier may be nil to disable completion
// notifications.
func New(sessions SessionStore, games GameCatalog, results ResultRecorder, authoring Authoring, reporting Reporting, notifier Notifier) *Engine {
	e := &Engine{
		sessions:  sessions,
		games:     games,
		results:   results,
		authoring: authoring,
		reporting: reporting,
		notifier:  notifier,
		now:       time.Now,
	}
	e.handlers = map[EventType]handlerFunc{
		EventLoadGame:        e.handleLoadGame,
		EventConfirmContinue: e.handleConfirmContinue,
		EventSubmitAnswer:    e.handleSubmitAnswer,
		EventTimeout:         e.handleTimeout,
		EventOpenEditor:      e.handleOpenEditor,
		EventSaveGame:        e.handleSaveGame,
		EventQueryResults:    e.handleQueryResults,
		EventCloseSession:    e.handleCloseSession,
	}
	return e
}

// Handle processes one inbound event and always yields a response: store
// failures and unknown events become spoken guidance, never a panic or a
// dropped turn.
func (e *Engine) Handle(event Event) Response {
	session, err := e.sessions.Get(event.UserID, event.SessionID)
	if err != nil {
		log.Printf("Failed to load session %s/%s: %v", event.UserID, event.SessionID, err)
		return guidance(msgTryAgain)
	}
	if session == nil {
		return Response{Speech: msgNotAuthenticated, EndSession: true}
	}

	handler, ok := e.handlers[event.Type]
	if !ok {
		return guidance(msgUnknownEvent)
	}

	response, err := handler(session, event)
	if err != nil {
		log.Printf("Failed to handle %s for %s/%s: %v", event.Type, event.UserID, event.SessionID, err)
		return guidance(msgTryAgain)
	}
	return response
}

// handleLoadGame resolves a title to a game and resets the session to its
// first puzzle. The first challenge waits for an explicit confirmation.
func (e *Engine) handleLoadGame(session *models.Session, event Event) (Response, error) {
	game, err := e.games.GetByTitle(event.Title)
	if err != nil {
		return Response{}, err
	}
	if game == nil {
		return guidance(fmt.Sprintf("I couldn't find a game called %s. Tell me another title.", event.Title)), nil
	}

	now := e.now()
	zero := 0
	inactive := false
	err = e.sessions.UpdateFields(session.UserID, session.SessionID, models.SessionUpdate{
		GameID:             &game.ID,
		CurrentPuzzleIndex: &zero,
		PuzzleStarted:      &inactive,
		PuzzleTimerActive:  &inactive,
		FailuresOnPuzzle:   &zero,
		FailuresTotal:      &zero,
		PuzzlesCleared:     &zero,
		StartedAt:          &now,
		ClearEndedAt:       true,
	})
	if err != nil {
		return Response{}, err
	}

	sp := speech.New().
		Text("%s", game.NarrativeIntro).
		Break("1s").
		Text(promptReady)
	return Response{
		Speech:    sp.String(),
		Reprompt:  promptReady,
		Directive: &Directive{Action: ActionShowCover, Payload: CoverPayload{Title: game.Title, Theme: game.CoverTheme}},
	}, nil
}

// handleConfirmContinue starts the current puzzle. It is idempotent-guarded:
// confirming while a puzzle is active changes nothing.
func (e *Engine) handleConfirmContinue(session *models.Session, event Event) (Response, error) {
	if !session.HasGame() {
		return guidance(msgNoGameLoaded), nil
	}
	if session.PuzzleStarted {
		return guidance(msgAlreadyActive), nil
	}

	game, err := e.games.GetByID(session.GameID)
	if err != nil {
		return Response{}, err
	}
	if game == nil {
		return e.finalize(session, session.FailuresTotal, session.PuzzlesCleared, speech.New().Text(msgGameVanished))
	}
	if Decide(session.CurrentPuzzleIndex, len(game.Puzzles)) == DecisionFinalize {
		return e.finalize(session, session.FailuresTotal, session.PuzzlesCleared, speech.New().Text("You have faced every challenge."))
	}

	return e.startPuzzle(session, game)
}

func (e *Engine) startPuzzle(session *models.Session, game *models.Game) (Response, error) {
	puzzle := game.PuzzleAt(session.CurrentPuzzleIndex)

	active := true
	zero := 0
	err := e.sessions.UpdateFields(session.UserID, session.SessionID, models.SessionUpdate{
		PuzzleStarted:     &active,
		PuzzleTimerActive: &active,
		FailuresOnPuzzle:  &zero,
	})
	if err != nil {
		return Response{}, err
	}

	payload := PuzzlePayload{
		Kind:             puzzle.Kind,
		Instruction:      puzzle.Instruction,
		EstimatedSeconds: puzzle.EstimatedSeconds,
	}
	if puzzle.Kind == models.PuzzleKindCipher {
		// The display only ever sees the transformed answer.
		payload.Data = cipher.Transform(puzzle.CorrectAnswer, puzzle.CipherKey)
	}

	sp := speech.New().
		Text("Challenge %d.", session.CurrentPuzzleIndex+1).
		Break("500ms").
		Text("%s", puzzle.Instruction)
	return Response{
		Speech:    sp.String(),
		Reprompt:  puzzle.Instruction,
		Directive: &Directive{Action: ActionShowPuzzle, Payload: payload},
	}, nil
}

// handleSubmitAnswer judges an answer against the active puzzle. Wrong
// answers walk the hint ladder; crossing the failure budget forces an
// advance in the same transition, so a session is never stored with the
// budget exceeded.
func (e *Engine) handleSubmitAnswer(session *models.Session, event Event) (Response, error) {
	if !session.PuzzleStarted || !session.PuzzleTimerActive {
		return guidance(msgNoActivePuzzle), nil
	}

	game, err := e.games.GetByID(session.GameID)
	if err != nil {
		return Response{}, err
	}
	puzzle := game.PuzzleAt(session.CurrentPuzzleIndex)
	if puzzle == nil {
		return e.finalize(session, session.FailuresTotal, session.PuzzlesCleared, speech.New().Text(msgGameVanished))
	}

	if answer.Matches(puzzle.Kind, event.Answer, puzzle.CorrectAnswer) {
		won, err := e.sessions.AdvancePuzzle(session.UserID, session.SessionID, session.CurrentPuzzleIndex, 1, 0)
		if err != nil {
			return Response{}, err
		}
		if !won {
			return guidance(msgAlreadyResolved), nil
		}
		sp := speech.New().Text("That's correct!")
		if puzzle.PostNarrative != "" {
			sp.Break("500ms").Text("%s", puzzle.PostNarrative)
		}
		return e.afterAdvance(session, game, session.FailuresTotal, session.PuzzlesCleared+1, sp)
	}

	failures := session.FailuresOnPuzzle + 1

	if failures <= len(puzzle.Hints) {
		counted, err := e.sessions.RecordFailure(session.UserID, session.SessionID, session.FailuresOnPuzzle)
		if err != nil {
			return Response{}, err
		}
		if !counted {
			return guidance(msgAlreadyResolved), nil
		}
		hint := puzzle.Hints[failures-1]
		sp := speech.New().
			Text("That's not it. Here is a hint.").
			Break("500ms").
			Text("%s", hint)
		return Response{
			Speech:    sp.String(),
			Reprompt:  promptAnswer,
			Directive: &Directive{Action: ActionShowHint, Payload: HintPayload{Number: failures, Hint: hint}},
		}, nil
	}

	if failures < game.FailureBudget {
		counted, err := e.sessions.RecordFailure(session.UserID, session.SessionID, session.FailuresOnPuzzle)
		if err != nil {
			return Response{}, err
		}
		if !counted {
			return guidance(msgAlreadyResolved), nil
		}
		return guidance("That's not it. Try again."), nil
	}

	// Budget exhausted: count the failure and advance in one conditional
	// write.
	won, err := e.sessions.AdvancePuzzle(session.UserID, session.SessionID, session.CurrentPuzzleIndex, 0, 1)
	if err != nil {
		return Response{}, err
	}
	if !won {
		return guidance(msgAlreadyResolved), nil
	}
	sp := speech.New().Text("That's not it, and you have run out of attempts for this challenge.")
	return e.afterAdvance(session, game, session.FailuresTotal+1, session.PuzzlesCleared, sp)
}

// handleTimeout reacts to the display's countdown reaching zero: the puzzle
// is abandoned without counting an attempt. Late or duplicate timeouts lose
// the conditional write and change nothing.
func (e *Engine) handleTimeout(session *models.Session, event Event) (Response, error) {
	if !session.PuzzleStarted || !session.PuzzleTimerActive {
		return guidance(msgNoActivePuzzle), nil
	}

	game, err := e.games.GetByID(session.GameID)
	if err != nil {
		return Response{}, err
	}
	if game == nil {
		return e.finalize(session, session.FailuresTotal, session.PuzzlesCleared, speech.New().Text(msgGameVanished))
	}

	won, err := e.sessions.AdvancePuzzle(session.UserID, session.SessionID, session.CurrentPuzzleIndex, 0, 0)
	if err != nil {
		return Response{}, err
	}
	if !won {
		return guidance(msgAlreadyResolved), nil
	}

	sp := speech.New().Text("Time is up for this challenge.")
	return e.afterAdvance(session, game, session.FailuresTotal, session.PuzzlesCleared, sp)
}

// afterAdvance routes a just-resolved puzzle to either the continuation
// prompt or finalization. The counter arguments carry the post-transition
// values.
func (e *Engine) afterAdvance(session *models.Session, game *models.Game, failuresTotal, puzzlesCleared int, sp *speech.Builder) (Response, error) {
	next := session.CurrentPuzzleIndex + 1
	if Decide(next, len(game.Puzzles)) == DecisionFinalize {
		return e.finalize(session, failuresTotal, puzzlesCleared, sp)
	}

	sp.Break("500ms").Text(promptContinue)
	return Response{Speech: sp.String(), Reprompt: promptContinue}, nil
}

// finalize writes the result record, deletes the session and ends the turn.
// No terminal session state survives; a new load starts over.
func (e *Engine) finalize(session *models.Session, failuresTotal, puzzlesCleared int, sp *speech.Builder) (Response, error) {
	now := e.now()
	startedAt := session.CreatedAt
	if session.StartedAt != nil {
		startedAt = *session.StartedAt
	}

	result := &models.Result{
		ID:             uuid.NewString(),
		UserID:         session.UserID,
		FailuresTotal:  failuresTotal,
		PuzzlesCleared: puzzlesCleared,
		StartedAt:      startedAt,
		EndedAt:        now,
	}
	if err := e.results.Append(result); err != nil {
		return Response{}, err
	}
	if err := e.sessions.Delete(session.UserID, session.SessionID); err != nil {
		return Response{}, err
	}

	if e.notifier != nil {
		if err := e.notifier.GameFinished(session.UserID, result); err != nil {
			log.Printf("Failed to send completion notification for user %s: %v", session.UserID, err)
		}
	}

	sp.Break("1s").Text("The game is over. You solved %d challenges with %d wrong attempts. Thanks for playing!", puzzlesCleared, failuresTotal)
	return Response{Speech: sp.String(), EndSession: true}, nil
}

func (e *Engine) handleOpenEditor(session *models.Session, event Event) (Response, error) {
	if !session.IsStaff() {
		return guidance(msgStaffOnly), nil
	}

	games, err := e.games.List()
	if err != nil {
		return Response{}, err
	}

	summaries := make([]GameSummary, 0, len(games))
	for _, game := range games {
		summaries = append(summaries, GameSummary{
			ID:      game.ID,
			Title:   game.Title,
			Course:  game.Course,
			Puzzles: len(game.Puzzles),
		})
	}

	return Response{
		Speech:    "The editor is open on your screen. Save the game there when you are done.",
		Reprompt:  "The editor is waiting on your screen.",
		Directive: &Directive{Action: ActionEditorOpen, Payload: summaries},
	}, nil
}

func (e *Engine) handleSaveGame(session *models.Session, event Event) (Response, error) {
	if !session.IsStaff() {
		return guidance(msgStaffOnly), nil
	}
	if event.Game == nil {
		return guidance("There is no game definition to save."), nil
	}

	if err := e.authoring.SaveGame(event.Game); err != nil {
		var valErr validation.ValidationError
		if errors.As(err, &valErr) {
			return guidance(fmt.Sprintf("I can't save that game: %s.", valErr.Message)), nil
		}
		if errors.Is(err, repository.ErrDuplicateTitle) {
			return guidance("A game with that title already exists. Pick another title."), nil
		}
		return Response{}, err
	}

	return Response{
		Speech:    fmt.Sprintf("The game %s has been saved.", event.Game.Title),
		Directive: &Directive{Action: ActionSaveOK, Payload: CoverPayload{Title: event.Game.Title}},
	}, nil
}

func (e *Engine) handleQueryResults(session *models.Session, event Event) (Response, error) {
	if !session.IsStaff() {
		return guidance(msgStaffOnly), nil
	}

	results, found, err := e.reporting.StudentResults(event.StudentName, event.StudentCourse, event.StudentGroup)
	if err != nil {
		return Response{}, err
	}
	if !found {
		return guidance(fmt.Sprintf("I couldn't find a student called %s in that class.", event.StudentName)), nil
	}
	if len(results) == 0 {
		return guidance(fmt.Sprintf("%s has no finished games yet.", event.StudentName)), nil
	}

	entries := make([]ResultEntry, 0, len(results))
	for i := range results {
		entries = append(entries, ResultEntry{
			PuzzlesCleared: results[i].PuzzlesCleared,
			FailuresTotal:  results[i].FailuresTotal,
			ElapsedSeconds: results[i].ElapsedSeconds(),
		})
	}

	latest := results[0]
	sp := speech.New().Text("%s has %d finished games. In the latest one they cleared %d challenges with %d wrong attempts.",
		event.StudentName, len(results), latest.PuzzlesCleared, latest.FailuresTotal)
	return Response{
		Speech:    sp.String(),
		Directive: &Directive{Action: ActionShowResults, Payload: entries},
	}, nil
}

func (e *Engine) handleCloseSession(session *models.Session, event Event) (Response, error) {
	if err := e.sessions.Delete(session.UserID, session.SessionID); err != nil {
		return Response{}, err
	}
	return Response{
		Speech:     "See you next time!",
		Directive:  &Directive{Action: ActionLogout},
		EndSession: true,
	}, nil
}
