package quiz

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-learn/internal/catalog"
)

// ErrAttemptClosed is returned by an attempt that was already submitted,
// timed out or abandoned.
var ErrAttemptClosed = errors.New("quiz attempt is closed")

// ErrAttemptOpen is returned by Result before the attempt is closed.
var ErrAttemptOpen = errors.New("quiz attempt still open")

// Attempt is one timed sitting of a quiz. When the deadline passes the
// answers given so far are submitted automatically, exactly once.
type Attempt struct {
	ID       uuid.UUID
	Quiz     catalog.Quiz
	Deadline time.Time

	engine *Engine
	ctx    context.Context
	timer  *time.Timer
	done   chan struct{}

	mu       sync.Mutex
	answers  map[int]string
	closed   bool
	timedOut bool
	result   Result
	err      error
}

// Start opens a timed attempt on an unlocked quiz. The timer outlives
// cancellation of ctx but not Submit or Abandon.
func (e *Engine) Start(ctx context.Context, id int) (*Attempt, error) {
	q, err := e.catalog.Quiz(id)
	if err != nil {
		return nil, err
	}
	if !e.IsUnlocked(ctx, id) {
		return nil, ErrQuizLocked
	}

	a := &Attempt{
		ID:       uuid.New(),
		Quiz:     q,
		Deadline: e.now().Add(e.timeLimit),
		engine:   e,
		ctx:      context.WithoutCancel(ctx),
		done:     make(chan struct{}),
		answers:  make(map[int]string),
	}
	a.mu.Lock()
	a.timer = time.AfterFunc(e.timeLimit, a.expire)
	a.mu.Unlock()
	return a, nil
}

// Answer records the chosen option for a question, replacing any earlier
// choice.
func (a *Attempt) Answer(questionID int, option string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAttemptClosed
	}
	a.answers[questionID] = option
	return nil
}

// Answers returns a copy of the answers given so far.
func (a *Attempt) Answers() map[int]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.answers)
}

// Remaining is the time left before auto-submission.
func (a *Attempt) Remaining() time.Duration {
	return max(0, a.Deadline.Sub(a.engine.now()))
}

// Submit scores the current answers and closes the attempt.
func (a *Attempt) Submit(ctx context.Context) (Result, error) {
	return a.finish(ctx, false)
}

// Abandon closes the attempt without recording a score.
func (a *Attempt) Abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.timer.Stop()
	a.err = ErrAttemptClosed
	close(a.done)
}

// Done is closed once the attempt is submitted, timed out or abandoned.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Result returns the outcome once Done is closed.
func (a *Attempt) Result() (Result, error) {
	select {
	case <-a.done:
	default:
		return Result{}, ErrAttemptOpen
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.err
}

// TimedOut reports whether the deadline closed the attempt.
func (a *Attempt) TimedOut() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timedOut
}

func (a *Attempt) expire() {
	_, _ = a.finish(a.ctx, true)
}

func (a *Attempt) finish(ctx context.Context, timedOut bool) (Result, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return Result{}, ErrAttemptClosed
	}
	a.closed = true
	a.timedOut = timedOut
	a.timer.Stop()
	answers := maps.Clone(a.answers)
	a.mu.Unlock()

	res, err := a.engine.Submit(ctx, a.Quiz.ID, answers)
	res.TimedOut = timedOut

	a.mu.Lock()
	a.result, a.err = res, err
	a.mu.Unlock()
	close(a.done)
	return res, err
}
