package lesson

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LeahNg97/KOLP-sub001/core"
)

type Lesson struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Position    int       `json:"position"`
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// StudentLesson tracks one student's progress on one lesson.
// There is at most one record per (student, lesson); completion events upsert it.
type StudentLesson struct {
	ID           string    `json:"id"`
	LessonID     string    `json:"lesson_id"`
	CourseID     string    `json:"course_id"`
	StudentID    string    `json:"student_id"`
	Completed    bool      `json:"completed"`
	CompletedAt  time.Time `json:"completed_at"` // UTC; zero when not completed
	TimeSpentSec int       `json:"time_spent_sec"`
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Title       string `json:"title" validate:"required"`
	Content     string `json:"content"`
	Position    int    `json:"position" validate:"gte=0"`
	DurationMin int    `json:"duration_min" validate:"gte=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

// CompleteLesson is the payload of a lesson-completion event.
type CompleteLesson struct {
	TimeSpentSec int `json:"time_spent_sec" validate:"gte=0"`
}

func (cl *CompleteLesson) Validate(validate *validator.Validate) error {
	return validate.Struct(cl)
}
