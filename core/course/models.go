package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LeahNg97/KOLP-sub001/core"
)

// StatField names a denormalized counter on Course.Stats.
// Counters are only ever mutated through guarded increments co-located with
// the entity change that caused them, never recomputed by full scans.
type StatField string

const (
	StatStudentCount           StatField = "student_count"
	StatTotalLessons           StatField = "total_lessons"
	StatTotalQuizzes           StatField = "total_quizzes"
	StatTotalShortQuestionSets StatField = "total_short_question_sets"
)

type Stats struct {
	StudentCount           int `json:"student_count"`
	TotalLessons           int `json:"total_lessons"`
	TotalQuizzes           int `json:"total_quizzes"`
	TotalShortQuestionSets int `json:"total_short_question_sets"`
}

type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TeacherID   string    `json:"teacher_id"`
	Published   bool      `json:"published"`
	Stats       Stats     `json:"stats"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code        string `json:"code" validate:"required,alphanum_"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Published   *bool  `json:"published"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search    string `query:"search"`
	TeacherID string `query:"teacher_id"`
	Published *bool  `query:"published"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.TeacherID = core.CleanString(f.TeacherID)
}
