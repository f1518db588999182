// Package exam administers timed mock exam attempts.
package exam

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/rapiddent/internal/model"
)

// Defaults for a mock exam.
const (
	DefaultQuestions   = 30
	DefaultDuration    = 15 * time.Minute
	DefaultPassPercent = 75
)

// ErrNotFinished is returned by Finalize before the session has ended.
var ErrNotFinished = errors.New("exam session is not finished")

// State is the lifecycle stage of a session.
type State int

// Session states.
const (
	NotStarted State = iota
	InProgress
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Finish reasons.
const (
	ReasonCompleted = "completed"
	ReasonTimedOut  = "timed_out"
	ReasonAbandoned = "abandoned"
)

// Config controls timing and grading.
type Config struct {
	Duration    time.Duration
	PassPercent int
	// Clock stamps the end of the session. Defaults to time.Now.
	Clock func() time.Time
}

// Outcome reports what happened to a submitted answer.
type Outcome struct {
	Correct  bool
	Accepted bool
	Finished bool
}

// Result is the graded outcome of a finished session.
type Result struct {
	SessionID      string
	Score          int
	Total          int
	Answered       int
	Percentage     int
	Passed         bool
	WrongQuestions []model.Question
	Reason         string
	StartedAt      time.Time
	EndedAt        time.Time
}

// Attempt converts the result into a history record.
func (r Result) Attempt() model.ExamAttempt {
	wrong := make([]string, 0, len(r.WrongQuestions))
	for _, q := range r.WrongQuestions {
		wrong = append(wrong, q.ID)
	}
	return model.ExamAttempt{
		ID:           r.SessionID,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
		Score:        r.Score,
		Total:        r.Total,
		Percentage:   r.Percentage,
		Passed:       r.Passed,
		FinishReason: r.Reason,
		WrongIDs:     wrong,
	}
}

// Session is a single exam attempt. It is not safe for concurrent use; the
// caller delivers answers and ticks from one goroutine.
type Session struct {
	id        string
	questions []model.Question
	cfg       Config

	state     State
	reason    string
	answered  int
	score     int
	wrong     []model.Question
	remaining int
	startedAt time.Time
	endedAt   time.Time
}

// New creates a session over pre-selected questions.
func New(questions []model.Question, cfg Config) *Session {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.PassPercent <= 0 {
		cfg.PassPercent = DefaultPassPercent
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Session{
		id:        uuid.NewString(),
		questions: questions,
		cfg:       cfg,
		remaining: int(math.Ceil(cfg.Duration.Seconds())),
	}
}

// Start begins the countdown. A session without questions finishes at once.
func (s *Session) Start(now time.Time) {
	if s.state != NotStarted {
		return
	}
	s.state = InProgress
	s.startedAt = now
	if len(s.questions) == 0 {
		s.finish(ReasonCompleted)
	}
}

// SubmitAnswer grades an answer while the session is in progress.
func (s *Session) SubmitAnswer(q model.Question, optionID string) Outcome {
	if s.state != InProgress {
		return Outcome{}
	}
	correct := optionID == q.CorrectOption
	if correct {
		s.score++
	} else {
		s.wrong = append(s.wrong, q)
	}
	s.answered++
	if s.answered >= len(s.questions) {
		s.finish(ReasonCompleted)
	}
	return Outcome{Correct: correct, Accepted: true, Finished: s.state == Finished}
}

// Tick advances the countdown by one second.
func (s *Session) Tick() {
	if s.state != InProgress {
		return
	}
	if s.answered >= len(s.questions) {
		s.finish(ReasonCompleted)
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.finish(ReasonTimedOut)
	}
}

// Abandon ends the session early.
func (s *Session) Abandon() {
	if s.state == Finished {
		return
	}
	if s.state == NotStarted {
		s.startedAt = s.cfg.Clock()
	}
	s.finish(ReasonAbandoned)
}

func (s *Session) finish(reason string) {
	s.state = Finished
	s.reason = reason
	s.endedAt = s.cfg.Clock()
}

// Finalize grades a finished session.
func (s *Session) Finalize() (Result, error) {
	if s.state != Finished {
		return Result{}, ErrNotFinished
	}
	total := len(s.questions)
	pct := Percentage(s.score, total)
	return Result{
		SessionID:      s.id,
		Score:          s.score,
		Total:          total,
		Answered:       s.answered,
		Percentage:     pct,
		Passed:         pct >= s.cfg.PassPercent,
		WrongQuestions: append([]model.Question(nil), s.wrong...),
		Reason:         s.reason,
		StartedAt:      s.startedAt,
		EndedAt:        s.endedAt,
	}, nil
}

// Percentage returns score as a rounded share of total, or 0 for no questions.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle stage.
func (s *Session) State() State { return s.state }

// Current returns the next question to answer.
func (s *Session) Current() (model.Question, bool) {
	if s.state != InProgress || s.answered >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[s.answered], true
}

// Answered returns how many questions have been answered.
func (s *Session) Answered() int { return s.answered }

// Total returns the number of questions in the session.
func (s *Session) Total() int { return len(s.questions) }

// Score returns the running number of correct answers.
func (s *Session) Score() int { return s.score }

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int { return s.remaining }

// PassPercent returns the grading threshold.
func (s *Session) PassPercent() int { return s.cfg.PassPercent }
