package quiz

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("quiz not found")
	ErrQuizExists  = errors.New("this course already has a quiz")
	ErrNotEnrolled = errors.New("student is not enrolled in this course")
	ErrMaxAttempts = errors.New("maximum number of attempts reached")
)

type (
	Repository interface {
		// CreateQuiz inserts the quiz and increments the course's
		// total_quizzes counter in the same transaction.
		CreateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
		GetQuizByID(ctx context.Context, id string) (Quiz, error)
		GetQuizByCourseID(ctx context.Context, courseID string) (Quiz, error)
		UpdateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
		// DeleteQuiz removes the quiz and decrements the course's
		// total_quizzes counter in the same transaction.
		DeleteQuiz(ctx context.Context, id string) error

		GetAttempt(ctx context.Context, quizID, studentID string) (Attempt, error)
		// GetCourseAttempt resolves the student's quiz-progress record by course.
		GetCourseAttempt(ctx context.Context, courseID, studentID string) (Attempt, error)
		// UpsertAttempt creates or replaces the (student, quiz) progress record.
		UpsertAttempt(ctx context.Context, att Attempt) (Attempt, error)
	}

	// CourseStore is the slice of the course domain this service needs.
	CourseStore interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
	}

	// EnrollmentGate guards student actions behind an approved enrollment.
	EnrollmentGate interface {
		IsApproved(ctx context.Context, courseID, studentID string) (bool, error)
	}

	// Aggregator recomputes a student's derived course progress.
	Aggregator interface {
		Refresh(ctx context.Context, courseID, studentID string) (int, error)
	}

	Service struct {
		repo       Repository
		courses    CourseStore
		gate       EnrollmentGate
		aggregator Aggregator
	}
)

func NewService(repo Repository, courses CourseStore, gate EnrollmentGate, aggregator Aggregator) *Service {
	return &Service{
		repo:       repo,
		courses:    courses,
		gate:       gate,
		aggregator: aggregator,
	}
}

func (svc *Service) Create(ctx context.Context, actor user.User, courseID string, nq NewQuiz) (Quiz, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return Quiz{}, err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return Quiz{}, err
	}
	if _, err = svc.repo.GetQuizByCourseID(ctx, courseID); err == nil {
		return Quiz{}, ErrQuizExists
	} else if errors.Cause(err) != ErrNotFound {
		return Quiz{}, err
	}

	now := time.Now().UTC()
	qz := Quiz{
		CourseID:    courseID,
		Title:       nq.Title,
		PassPct:     nq.PassPct,
		MaxAttempts: nq.MaxAttempts,
		Questions:   make([]Question, 0, len(nq.Questions)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, q := range nq.Questions {
		qz.Questions = append(qz.Questions, Question{
			ID:      uuid.New().String(),
			Prompt:  q.Prompt,
			Choices: q.Choices,
			Answer:  q.Answer,
		})
	}
	return svc.repo.CreateQuiz(ctx, qz)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuizByID(ctx, id)
}

func (svc *Service) GetByCourse(ctx context.Context, courseID string) (Quiz, error) {
	return svc.repo.GetQuizByCourseID(ctx, courseID)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	qz, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return err
	}
	crs, err := svc.courses.GetCourseByID(ctx, qz.CourseID)
	if err != nil {
		return err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return err
	}
	return svc.repo.DeleteQuiz(ctx, id)
}

// Submit grades a student's answers and overwrites their quiz-progress record.
// A submission past MaxAttempts is rejected with ErrMaxAttempts.
func (svc *Service) Submit(ctx context.Context, studentID, quizID string, sq SubmitQuiz) (Attempt, error) {
	qz, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}

	ok, err := svc.gate.IsApproved(ctx, qz.CourseID, studentID)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "checking enrollment")
	}
	if !ok {
		return Attempt{}, ErrNotEnrolled
	}

	prev, err := svc.repo.GetAttempt(ctx, quizID, studentID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return Attempt{}, err
	}
	if qz.MaxAttempts > 0 && prev.AttemptCount >= qz.MaxAttempts {
		return Attempt{}, ErrMaxAttempts
	}

	att := svc.grade(qz, studentID, sq)
	att.AttemptCount = prev.AttemptCount + 1

	att, err = svc.repo.UpsertAttempt(ctx, att)
	if err != nil {
		return Attempt{}, err
	}

	if _, err = svc.aggregator.Refresh(ctx, qz.CourseID, studentID); err != nil {
		return att, errors.Wrap(err, "refreshing course progress")
	}
	return att, nil
}

// GetResult returns the student's current quiz-progress record.
func (svc *Service) GetResult(ctx context.Context, quizID, studentID string) (Attempt, error) {
	return svc.repo.GetAttempt(ctx, quizID, studentID)
}

func (svc *Service) grade(qz Quiz, studentID string, sq SubmitQuiz) Attempt {
	selected := make(map[string]int, len(sq.Answers))
	for _, a := range sq.Answers {
		selected[a.QuestionID] = a.Selected
	}

	att := Attempt{
		QuizID:         qz.ID,
		CourseID:       qz.CourseID,
		StudentID:      studentID,
		TotalQuestions: len(qz.Questions),
		Answers:        make([]AttemptAnswer, 0, len(qz.Questions)),
		UpdatedAt:      time.Now().UTC(),
	}
	for _, q := range qz.Questions {
		sel, answered := selected[q.ID]
		correct := answered && sel == q.Answer
		if correct {
			att.Score++
		}
		if !answered {
			sel = -1
		}
		att.Answers = append(att.Answers, AttemptAnswer{QuestionID: q.ID, Selected: sel, Correct: correct})
	}

	if att.TotalQuestions > 0 {
		att.Percentage = int(math.Round(float64(att.Score) / float64(att.TotalQuestions) * 100))
	}
	att.Passed = att.Percentage >= qz.PassPct
	if att.Passed {
		att.Status = StatusCompleted
	} else {
		att.Status = StatusFailed
	}
	return att
}

func checkCourseOwnership(actor user.User, crs course.Course) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsTeacher() && crs.TeacherID == actor.ID {
		return nil
	}
	return core.ErrPermissionDenied
}
