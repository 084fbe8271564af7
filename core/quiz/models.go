package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LeahNg97/KOLP-sub001/core"
)

const (
	// DefaultPassPct is the fixed passing threshold for quizzes.
	DefaultPassPct = 70
	// DefaultMaxAttempts bounds how many times a student may submit.
	DefaultMaxAttempts = 3
)

// Attempt statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"` // index into Choices
}

type Quiz struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	Title       string     `json:"title"`
	PassPct     int        `json:"pass_pct"`
	MaxAttempts int        `json:"max_attempts"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

type AttemptAnswer struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"`
	Correct    bool   `json:"correct"`
}

// Attempt is the single quiz-progress record kept per (student, quiz).
// Submissions overwrite it; AttemptCount tracks how many were made.
type Attempt struct {
	ID             string          `json:"id"`
	QuizID         string          `json:"quiz_id"`
	CourseID       string          `json:"course_id"`
	StudentID      string          `json:"student_id"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	Percentage     int             `json:"percentage"`
	Passed         bool            `json:"passed"`
	Status         string          `json:"status"`
	AttemptCount   int             `json:"attempt_count"`
	Answers        []AttemptAnswer `json:"answers"`
	UpdatedAt      time.Time       `json:"updated_at"` // UTC
}

// NewQuiz contains information needed to create a course's quiz.
type NewQuiz struct {
	Title       string        `json:"title" validate:"required"`
	PassPct     int           `json:"pass_pct" validate:"gte=0,lte=100"`
	MaxAttempts int           `json:"max_attempts" validate:"gte=0"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

type NewQuestion struct {
	Prompt  string   `json:"prompt" validate:"required"`
	Choices []string `json:"choices" validate:"required,min=2"`
	Answer  int      `json:"answer" validate:"gte=0"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	if nq.PassPct == 0 {
		nq.PassPct = DefaultPassPct
	}
	if nq.MaxAttempts == 0 {
		nq.MaxAttempts = DefaultMaxAttempts
	}
	if err := validate.Struct(nq); err != nil {
		return err
	}
	for i, q := range nq.Questions {
		if q.Answer >= len(q.Choices) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "questions", Error: "answer index out of range for question " + q.Prompt,
			})
		}
		nq.Questions[i].Prompt = core.CleanString(q.Prompt)
	}
	return nil
}

// SubmitQuiz is a student's set of answers for one submission.
type SubmitQuiz struct {
	Answers []SubmitAnswer `json:"answers" validate:"required,min=1,dive"`
}

type SubmitAnswer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Selected   int    `json:"selected" validate:"gte=0"`
}

func (sq *SubmitQuiz) Validate(validate *validator.Validate) error {
	return validate.Struct(sq)
}
