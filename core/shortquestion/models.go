package shortquestion

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LeahNg97/KOLP-sub001/core"
)

// DefaultPassPct is the passing threshold for a graded short-answer attempt.
const DefaultPassPct = 50

// Attempt statuses
const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusGraded     = "graded"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

type Question struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	MaxPoints int    `json:"max_points"`
}

// Set is a group of short-answer questions belonging to a course.
type Set struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	Title     string     `json:"title"`
	PassPct   int        `json:"pass_pct"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	UpdatedAt time.Time  `json:"updated_at"` // UTC
}

type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Points     int    `json:"points"`
	Graded     bool   `json:"graded"`
}

// Attempt is one student run through a Set. Unlike quizzes, an attempt only
// becomes terminal once a teacher has graded it.
type Attempt struct {
	ID          string    `json:"id"`
	SetID       string    `json:"set_id"`
	CourseID    string    `json:"course_id"`
	StudentID   string    `json:"student_id"`
	Status      string    `json:"status"`
	Answers     []Answer  `json:"answers"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"total_points"`
	Percentage  int       `json:"percentage"`
	Passed      bool      `json:"passed"`
	StartedAt   time.Time `json:"started_at"`   // UTC
	SubmittedAt time.Time `json:"submitted_at"` // UTC; zero until submitted
	GradedAt    time.Time `json:"graded_at"`    // UTC; zero until graded
}

// SetResult is the terminal outcome of one set for one student,
// as consumed by progress aggregation.
type SetResult struct {
	SetID  string `json:"set_id"`
	Passed bool   `json:"passed"`
}

// NewSet contains information needed to create a new Set.
type NewSet struct {
	Title     string        `json:"title" validate:"required"`
	PassPct   int           `json:"pass_pct" validate:"gte=0,lte=100"`
	Questions []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

type NewQuestion struct {
	Prompt    string `json:"prompt" validate:"required"`
	MaxPoints int    `json:"max_points" validate:"gte=1"`
}

func (ns *NewSet) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	if ns.PassPct == 0 {
		ns.PassPct = DefaultPassPct
	}
	if err := validate.Struct(ns); err != nil {
		return err
	}
	for i, q := range ns.Questions {
		ns.Questions[i].Prompt = core.CleanString(q.Prompt)
	}
	return nil
}

// SubmitAttempt is a student's set of written answers.
type SubmitAttempt struct {
	Answers []SubmitAnswer `json:"answers" validate:"required,min=1,dive"`
}

type SubmitAnswer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

func (sa *SubmitAttempt) Validate(validate *validator.Validate) error {
	return validate.Struct(sa)
}

// GradeAttempt carries a teacher's point assignments for a submitted attempt.
type GradeAttempt struct {
	Grades []Grade `json:"grades" validate:"required,min=1,dive"`
}

type Grade struct {
	QuestionID string `json:"question_id" validate:"required"`
	Points     int    `json:"points" validate:"gte=0"`
}

func (ga *GradeAttempt) Validate(validate *validator.Validate) error {
	return validate.Struct(ga)
}
