package progress

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core/quiz"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
)

// Fixed weights: lessons 60%, quiz 20%, short-answer sets 20%.
// A legacy 60/40 lesson/quiz split is superseded by this scheme.
const (
	LessonWeight      = 60
	QuizWeight        = 20
	ShortAnswerWeight = 20
)

// ComputeError wraps a failed sub-progress read. No partial percentage is
// ever written when it is returned.
type ComputeError struct {
	err error
}

func (e *ComputeError) Error() string { return "computing course progress: " + e.err.Error() }
func (e *ComputeError) Cause() error  { return e.err }

func IsComputeError(err error) bool {
	_, ok := errors.Cause(err).(*ComputeError)
	return ok
}

type (
	// LessonStore counts a course's lessons and a student's completed ones.
	LessonStore interface {
		CountCourseLessons(ctx context.Context, courseID string) (int, error)
		CountCompletedLessons(ctx context.Context, courseID, studentID string) (int, error)
	}

	// QuizStore resolves the student's quiz-progress record for a course.
	QuizStore interface {
		GetCourseAttempt(ctx context.Context, courseID, studentID string) (quiz.Attempt, error)
	}

	// ShortAnswerStore lists the student's terminal (graded) set outcomes for a course.
	ShortAnswerStore interface {
		QueryTerminalResults(ctx context.Context, courseID, studentID string) ([]shortquestion.SetResult, error)
	}

	// Sink persists the derived percentage. It must not change enrollment
	// status or course counters.
	Sink interface {
		SetProgress(ctx context.Context, courseID, studentID string, pct int) error
	}

	Service struct {
		lessons LessonStore
		quizzes QuizStore
		shortqs ShortAnswerStore
		sink    Sink
	}
)

func NewService(lessons LessonStore, quizzes QuizStore, shortqs ShortAnswerStore, sink Sink) *Service {
	return &Service{
		lessons: lessons,
		quizzes: quizzes,
		shortqs: shortqs,
		sink:    sink,
	}
}

// Compute derives the student's 0-100 completion percentage for the course
// from the three sub-progress sources. It performs no writes.
func (svc *Service) Compute(ctx context.Context, courseID, studentID string) (int, error) {
	lessonShare, err := svc.lessonShare(ctx, courseID, studentID)
	if err != nil {
		return 0, &ComputeError{err: err}
	}
	quizShare, err := svc.quizShare(ctx, courseID, studentID)
	if err != nil {
		return 0, &ComputeError{err: err}
	}
	shortShare, err := svc.shortAnswerShare(ctx, courseID, studentID)
	if err != nil {
		return 0, &ComputeError{err: err}
	}

	total := lessonShare + quizShare + shortShare
	if total > 100 {
		total = 100
	}
	return total, nil
}

// Refresh computes the percentage and writes it onto the enrollment in the
// same logical operation. The write is last-write-wins on the progress field
// only, so concurrent refreshes for the same pair are benign.
func (svc *Service) Refresh(ctx context.Context, courseID, studentID string) (int, error) {
	pct, err := svc.Compute(ctx, courseID, studentID)
	if err != nil {
		return 0, err
	}
	if err = svc.sink.SetProgress(ctx, courseID, studentID, pct); err != nil {
		return 0, errors.Wrap(err, "persisting course progress")
	}
	return pct, nil
}

func (svc *Service) lessonShare(ctx context.Context, courseID, studentID string) (int, error) {
	total, err := svc.lessons.CountCourseLessons(ctx, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "counting course lessons")
	}
	if total == 0 {
		return 0, nil
	}
	completed, err := svc.lessons.CountCompletedLessons(ctx, courseID, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "counting completed lessons")
	}
	return int(math.Round(float64(completed) / float64(total) * LessonWeight)), nil
}

// quizShare is binary: full credit on a passed quiz, none otherwise.
// A 65% quiz score earns 0 of the 20 points, same as not attempting.
func (svc *Service) quizShare(ctx context.Context, courseID, studentID string) (int, error) {
	att, err := svc.quizzes.GetCourseAttempt(ctx, courseID, studentID)
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return 0, nil
		}
		return 0, errors.Wrap(err, "finding quiz attempt")
	}
	if att.Passed {
		return QuizWeight, nil
	}
	return 0, nil
}

// shortAnswerShare gives full credit when every attempted (graded) set
// passed, proportional credit otherwise, and none when no set is terminal.
func (svc *Service) shortAnswerShare(ctx context.Context, courseID, studentID string) (int, error) {
	results, err := svc.shortqs.QueryTerminalResults(ctx, courseID, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "querying short-answer results")
	}
	attempted := len(results)
	if attempted == 0 {
		return 0, nil
	}

	var passed int
	for _, res := range results {
		if res.Passed {
			passed++
		}
	}
	if passed == attempted {
		return ShortAnswerWeight, nil
	}
	return int(math.Round(float64(passed) / float64(attempted) * ShortAnswerWeight)), nil
}
