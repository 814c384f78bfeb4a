package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

// Live quiz message types.
const (
	msgStarted = "started"
	msgTick    = "tick"
	msgResult  = "result"
	msgError   = "error"
	msgAnswer  = "answer"
	msgSubmit  = "submit"
)

// clientMessage is sent by the learner.
type clientMessage struct {
	Type       string `json:"type"`
	QuestionID int    `json:"questionId,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

// serverMessage is sent to the learner.
type serverMessage struct {
	Type      string       `json:"type"`
	AttemptID string       `json:"attemptId,omitempty"`
	Remaining *int         `json:"remaining,omitempty"`
	Quiz      *liveQuiz    `json:"quiz,omitempty"`
	Result    *quiz.Result `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// liveQuiz is a quiz without its answers.
type liveQuiz struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Instruction string         `json:"instruction"`
	Questions   []liveQuestion `json:"questions"`
}

type liveQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"questionText"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

func newLiveQuiz(q catalog.Quiz) *liveQuiz {
	lq := &liveQuiz{ID: q.ID, Title: q.Title, Instruction: q.Instruction}
	for _, qq := range q.Questions {
		lq.Questions = append(lq.Questions, liveQuestion{ID: qq.ID, Text: qq.Text, Options: qq.Options, Points: qq.Points})
	}
	return lq
}

// handleLiveQuiz runs one timed attempt over a websocket. The server sends a
// tick every interval and a single result; closing the socket early abandons
// the attempt.
func (s *Server) handleLiveQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.engine.Catalog().Quiz(id); err != nil {
		writeEngineError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	attempt, err := s.engine.StartQuiz(ctx, id)
	if err != nil {
		_ = wsjson.Write(ctx, conn, serverMessage{Type: msgError, Error: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "quiz unavailable")
		return
	}

	if err := wsjson.Write(ctx, conn, serverMessage{
		Type:      msgStarted,
		AttemptID: attempt.ID.String(),
		Remaining: seconds(attempt.Remaining()),
		Quiz:      newLiveQuiz(attempt.Quiz),
	}); err != nil {
		attempt.Abandon()
		return
	}

	readErr := make(chan error, 1)
	go func() { readErr <- s.readAnswers(ctx, conn, attempt) }()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := wsjson.Write(ctx, conn, serverMessage{Type: msgTick, Remaining: seconds(attempt.Remaining())}); err != nil {
				attempt.Abandon()
				return
			}
		case <-attempt.Done():
			res, err := attempt.Result()
			msg := serverMessage{Type: msgResult, Result: &res}
			if err != nil {
				msg = serverMessage{Type: msgError, Error: err.Error()}
			}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case err := <-readErr:
			attempt.Abandon()
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				slog.Debug("live quiz connection closed", "error", err)
			}
			return
		}
	}
}

// readAnswers applies client messages until the connection fails.
func (s *Server) readAnswers(ctx context.Context, conn *websocket.Conn, attempt *quiz.Attempt) error {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		switch msg.Type {
		case msgAnswer:
			if err := attempt.Answer(msg.QuestionID, msg.Answer); err != nil {
				slog.Debug("answer after close", "attempt_id", attempt.ID)
			}
		case msgSubmit:
			if _, err := attempt.Submit(ctx); err != nil && !errors.Is(err, quiz.ErrAttemptClosed) {
				slog.Error("live quiz submit failed", "attempt_id", attempt.ID, "error", err)
			}
		default:
			slog.Debug("unknown live quiz message", "type", msg.Type)
		}
	}
}

func seconds(d time.Duration) *int {
	n := int(math.Ceil(d.Seconds()))
	return &n
}
