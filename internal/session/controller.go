// Package session implements the quiz-taking state machine: answers, cursor,
// flagged set, countdown and a debounced local snapshot.
//
// All state lives behind one mutex. The countdown is driven from outside by
// calling Tick once per second (see worker.TickWorker); the autosave debounce
// runs on the injected Clock.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/monitoring"
	"github.com/stemsi/exstem-player/internal/storage"
)

// DefaultDebounce is the quiet period before a snapshot is written.
const DefaultDebounce = 2 * time.Second

const storeTimeout = 5 * time.Second

// API is the slice of the backend client the controller needs.
type API interface {
	GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error)
	SubmitQuiz(ctx context.Context, quizID string, req model.SubmitRequest, idempotencyKey string) (*model.SubmitResult, error)
}

// Options wires a Controller. API and Store are required.
type Options struct {
	API       API
	Store     storage.Store
	Clock     Clock
	Confirmer Confirmer
	Debounce  time.Duration
	Log       zerolog.Logger
}

// Controller owns one quiz session.
type Controller struct {
	api       API
	store     storage.Store
	clock     Clock
	confirmer Confirmer
	debounce  time.Duration
	log       zerolog.Logger

	// persistMu serializes snapshot writes against the final Remove so a late
	// debounce cannot resurrect a cleared snapshot. Acquired before mu.
	persistMu sync.Mutex

	mu          sync.Mutex
	quizID      string
	quiz        *model.Quiz
	questionIDs map[string]struct{}
	answers     map[string]json.RawMessage
	current     int
	flagged     map[string]struct{}
	remaining   *int
	budget      int
	startedAt   time.Time
	paused      bool
	status      model.SessionStatus
	autosave    model.AutosaveStatus
	saveTimer   Timer
	saveGen     uint64
	forced      bool
	result      *model.SubmitResult
	submitKey   string
	done        chan struct{}

	subsMu sync.Mutex
	subs   map[int]chan model.SessionState
	nextID int
}

// New returns an unloaded controller. Call LoadSession before anything else.
func New(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Controller{
		api:       opts.API,
		store:     opts.Store,
		clock:     clock,
		confirmer: opts.Confirmer,
		debounce:  debounce,
		log:       opts.Log.With().Str("component", "session").Logger(),
		autosave:  model.AutosaveSaved,
		done:      make(chan struct{}),
		subs:      make(map[int]chan model.SessionState),
	}
}

// LoadSession fetches the quiz and seeds state from any stored snapshot.
// A backend failure returns *LoadError and leaves the session exited.
func (c *Controller) LoadSession(ctx context.Context, quizID string) error {
	c.mu.Lock()
	if c.quiz != nil || c.status != "" {
		c.mu.Unlock()
		return ErrAlreadyLoaded
	}
	c.quizID = quizID
	c.mu.Unlock()

	quiz, err := c.api.GetQuiz(ctx, quizID)
	if err != nil {
		c.mu.Lock()
		c.status = model.SessionStatusExited
		c.closeDoneLocked()
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("quiz_id", quizID).Msg("Failed to load quiz")
		return &LoadError{QuizID: quizID, Err: err}
	}

	snap := c.readSnapshot(ctx, quizID)

	c.mu.Lock()
	c.quiz = quiz
	c.questionIDs = quiz.QuestionIDs()
	c.answers = make(map[string]json.RawMessage)
	c.flagged = make(map[string]struct{})
	c.budget = quiz.TimeBudgetSeconds()
	c.startedAt = c.clock.Now()
	c.status = model.SessionStatusActive
	c.submitKey = uuid.NewString()
	if quiz.Timed() {
		t := c.budget
		c.remaining = &t
	}
	if snap != nil {
		c.restoreLocked(snap)
	}
	restored := snap != nil
	c.mu.Unlock()

	c.log.Info().
		Str("quiz_id", quizID).
		Int("questions", len(quiz.Questions)).
		Bool("restored", restored).
		Msg("Session loaded")
	c.publish()
	return nil
}

func (c *Controller) readSnapshot(ctx context.Context, quizID string) *model.SessionSnapshot {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	raw, err := c.store.Get(ctx, config.CacheKey.QuizProgressKey(quizID))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Debug().Err(err).Str("quiz_id", quizID).Msg("Snapshot read failed, starting fresh")
		}
		return nil
	}
	var snap model.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.log.Debug().Err(err).Str("quiz_id", quizID).Msg("Snapshot unreadable, starting fresh")
		return nil
	}
	return &snap
}

// restoreLocked applies a snapshot, dropping anything that does not fit the
// loaded question set.
func (c *Controller) restoreLocked(snap *model.SessionSnapshot) {
	for id, v := range snap.Answers {
		if _, ok := c.questionIDs[id]; ok {
			c.answers[id] = v
		}
	}
	for _, id := range snap.FlaggedQuestions {
		if _, ok := c.questionIDs[id]; ok {
			c.flagged[id] = struct{}{}
		}
	}
	c.current = clampIndex(snap.CurrentQuestionIndex, len(c.quiz.Questions))
	if c.remaining != nil && snap.TimeRemainingSeconds != nil {
		t := *snap.TimeRemainingSeconds
		if t < 0 {
			t = 0
		}
		if t > c.budget {
			t = c.budget
		}
		*c.remaining = t
	}
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// checkMutableLocked gates user edits.
func (c *Controller) checkMutableLocked() error {
	switch c.status {
	case "":
		return ErrNotLoaded
	case model.SessionStatusSubmitting:
		return ErrSubmitInProgress
	case model.SessionStatusCompleted, model.SessionStatusExited:
		return ErrSessionClosed
	}
	return nil
}

// SetAnswer overwrites the answer for a question. The value's shape is not
// checked.
func (c *Controller) SetAnswer(questionID string, value json.RawMessage) error {
	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if _, ok := c.questionIDs[questionID]; !ok {
		c.mu.Unlock()
		return ErrUnknownQuestion
	}
	if c.remaining != nil && *c.remaining == 0 {
		c.mu.Unlock()
		return ErrTimeUp
	}
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	c.answers[questionID] = append(json.RawMessage(nil), value...)
	c.markDirtyLocked(true)
	c.mu.Unlock()

	c.publish()
	return nil
}

// ToggleFlag adds or removes a question from the review set.
func (c *Controller) ToggleFlag(questionID string) error {
	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if _, ok := c.questionIDs[questionID]; !ok {
		c.mu.Unlock()
		return ErrUnknownQuestion
	}
	if _, ok := c.flagged[questionID]; ok {
		delete(c.flagged, questionID)
	} else {
		c.flagged[questionID] = struct{}{}
	}
	c.markDirtyLocked(true)
	c.mu.Unlock()

	c.publish()
	return nil
}

// Navigate moves the cursor. Any valid index is allowed in either direction.
func (c *Controller) Navigate(index int) error {
	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(c.quiz.Questions) {
		c.mu.Unlock()
		return ErrInvalidIndex
	}
	c.current = index
	c.markDirtyLocked(true)
	c.mu.Unlock()

	c.publish()
	return nil
}

// Tick decrements the countdown by one second. It is a no-op when untimed,
// paused or not active. Reaching zero triggers the forced submission once;
// its error, if any, is returned.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	if c.status != model.SessionStatusActive || c.paused || c.remaining == nil {
		c.mu.Unlock()
		return nil
	}
	changed := false
	if *c.remaining > 0 {
		*c.remaining--
		changed = true
	}
	expired := *c.remaining == 0 && !c.forced
	if expired {
		c.forced = true
	}
	if changed {
		c.markDirtyLocked(false)
	}
	c.mu.Unlock()

	if changed {
		c.publish()
	}
	if expired {
		c.log.Info().Str("quiz_id", c.quizID).Msg("Time is up, submitting")
		_, err := c.Submit(ctx, true)
		return err
	}
	return nil
}

// Pause stops the countdown. Autosave keeps running.
func (c *Controller) Pause() error {
	return c.setPaused(true)
}

// Resume restarts the countdown.
func (c *Controller) Resume() error {
	return c.setPaused(false)
}

func (c *Controller) setPaused(paused bool) error {
	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.paused == paused {
		c.mu.Unlock()
		return nil
	}
	c.paused = paused
	c.mu.Unlock()

	c.publish()
	return nil
}

// Submit sends the answer map using the controller's Confirmer.
func (c *Controller) Submit(ctx context.Context, auto bool) (*model.SubmitResult, error) {
	return c.SubmitWith(ctx, auto, c.confirmer)
}

// SubmitWith sends the answer map. A manual submit with unanswered questions
// asks confirm first; with a nil confirm it returns
// *ConfirmationRequiredError. Once the countdown has hit zero every submit
// counts as automatic.
func (c *Controller) SubmitWith(ctx context.Context, auto bool, confirm Confirmer) (*model.SubmitResult, error) {
	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.remaining != nil && *c.remaining == 0 {
		auto = true
	}
	answered, total := c.progressLocked()
	c.mu.Unlock()

	if !auto && answered < total {
		if confirm == nil {
			return nil, &ConfirmationRequiredError{Answered: answered, Total: total}
		}
		ok, err := confirm.ConfirmSubmit(ctx, answered, total)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSubmitCancelled
		}
	}

	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.status = model.SessionStatusSubmitting
	req := model.SubmitRequest{
		Answers:          c.answersCopyLocked(),
		AutoSubmitted:    auto,
		TimeSpentSeconds: c.timeSpentLocked(),
	}
	quizID, key := c.quizID, c.submitKey
	c.mu.Unlock()
	c.publish()

	result, err := c.api.SubmitQuiz(ctx, quizID, req, key)
	if err != nil {
		c.mu.Lock()
		if c.status == model.SessionStatusSubmitting {
			c.status = model.SessionStatusActive
			// A debounce may have fired during the call; persist what is kept.
			c.markDirtyLocked(true)
		}
		c.mu.Unlock()
		monitoring.Submissions.WithLabelValues("failed").Inc()
		c.log.Warn().Err(err).Str("quiz_id", quizID).Bool("auto", auto).Msg("Submit failed, keeping local state")
		c.publish()
		return nil, &SubmitError{QuizID: quizID, Err: err}
	}

	c.persistMu.Lock()
	c.mu.Lock()
	c.status = model.SessionStatusCompleted
	c.result = result
	c.stopSaveLocked()
	c.autosave = model.AutosaveSaved
	c.closeDoneLocked()
	c.mu.Unlock()
	c.removeSnapshot(quizID)
	c.persistMu.Unlock()

	outcome := "manual"
	if auto {
		outcome = "auto"
	}
	monitoring.Submissions.WithLabelValues(outcome).Inc()
	c.log.Info().
		Str("quiz_id", quizID).
		Str("attempt_id", result.AttemptID).
		Bool("auto", auto).
		Int("answered", answered).
		Int("total", total).
		Msg("Quiz submitted")
	c.publish()
	return result, nil
}

// Exit abandons the session and clears its snapshot.
func (c *Controller) Exit() {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.status == model.SessionStatusCompleted || c.status == model.SessionStatusExited {
		c.mu.Unlock()
		return
	}
	c.status = model.SessionStatusExited
	c.stopSaveLocked()
	c.closeDoneLocked()
	quizID := c.quizID
	c.mu.Unlock()

	if quizID != "" {
		c.removeSnapshot(quizID)
	}
	c.log.Info().Str("quiz_id", quizID).Msg("Session exited")
	c.publish()
}

// Close tears the session down without touching storage. A pending debounced
// write is dropped; call Flush first to keep it. The last written snapshot
// stays for the next load.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopSaveLocked()
	if c.status == model.SessionStatusActive || c.status == model.SessionStatusSubmitting || c.status == "" {
		c.status = model.SessionStatusExited
	}
	c.closeDoneLocked()
	c.mu.Unlock()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
}

// Done is closed once the session is completed, exited or closed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// QuizID is the id passed to LoadSession.
func (c *Controller) QuizID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quizID
}

// State returns a copy of the session for views.
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := model.SessionState{
		QuizID:               c.quizID,
		CurrentQuestionIndex: c.current,
		FlaggedQuestions:     c.flaggedListLocked(),
		Paused:               c.paused,
		AutosaveStatus:       c.autosave,
		Status:               c.status,
		Answers:              c.answersCopyLocked(),
	}
	if c.quiz != nil {
		s.Title = c.quiz.Title
		s.Questions = c.quiz.Questions
	}
	if c.remaining != nil {
		t := *c.remaining
		s.TimeRemainingSeconds = &t
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	s.Answered, s.Total = c.progressLocked()
	return s
}

// Progress reports answered and total question counts.
func (c *Controller) Progress() (answered, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

// Subscribe returns a channel of state changes and a cancel func. Slow
// readers only miss intermediate states; the latest one is always queued.
func (c *Controller) Subscribe() (<-chan model.SessionState, func()) {
	ch := make(chan model.SessionState, 8)

	c.subsMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subsMu.Unlock()

	return ch, func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

func (c *Controller) publish() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if len(c.subs) == 0 {
		return
	}
	state := c.State()
	for _, ch := range c.subs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

func (c *Controller) progressLocked() (answered, total int) {
	if c.quiz == nil {
		return 0, 0
	}
	for id, v := range c.answers {
		if _, ok := c.questionIDs[id]; ok && !model.AnswerIsEmpty(v) {
			answered++
		}
	}
	return answered, len(c.quiz.Questions)
}

func (c *Controller) answersCopyLocked() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(c.answers))
	for k, v := range c.answers {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func (c *Controller) flaggedListLocked() []string {
	out := make([]string, 0, len(c.flagged))
	for id := range c.flagged {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Controller) timeSpentLocked() int {
	if c.remaining != nil {
		return c.budget - *c.remaining
	}
	return int(c.clock.Now().Sub(c.startedAt) / time.Second)
}

func (c *Controller) snapshotLocked() model.SessionSnapshot {
	snap := model.SessionSnapshot{
		Answers:              c.answersCopyLocked(),
		CurrentQuestionIndex: c.current,
		FlaggedQuestions:     c.flaggedListLocked(),
	}
	if c.remaining != nil {
		t := *c.remaining
		snap.TimeRemainingSeconds = &t
	}
	return snap
}

func (c *Controller) closeDoneLocked() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
