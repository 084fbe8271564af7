package shortquestion

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
	ErrNotFound        = errors.New("short-question set not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrNotEnrolled     = errors.New("student is not enrolled in this course")
	ErrNotSubmitted    = errors.New("attempt has not been submitted for grading")
	ErrAlreadyGraded   = errors.New("attempt has already been graded")
	ErrAttemptClosed   = errors.New("attempt is no longer open")
	ErrUnknownQuestion = errors.New("unknown question in payload")
	ErrPointsTooHigh   = errors.New("points exceed the question's maximum")
)

type (
	Repository interface {
		// CreateSet inserts the set and increments the course's
		// total_short_question_sets counter in the same transaction.
		CreateSet(ctx context.Context, set Set) (Set, error)
		GetSetByID(ctx context.Context, id string) (Set, error)
		QueryCourseSets(ctx context.Context, courseID string) ([]Set, error)
		// DeleteSet removes the set and decrements the course's
		// total_short_question_sets counter in the same transaction.
		DeleteSet(ctx context.Context, id string) error

		CreateAttempt(ctx context.Context, att Attempt) (Attempt, error)
		GetAttemptByID(ctx context.Context, id string) (Attempt, error)
		UpdateAttempt(ctx context.Context, att Attempt) (Attempt, error)
		QueryStudentAttempts(ctx context.Context, setID, studentID string) ([]Attempt, error)
		// QueryTerminalResults returns, per set of the course the student has a
		// completed attempt for, the outcome of the most recently graded one.
		QueryTerminalResults(ctx context.Context, courseID, studentID string) ([]SetResult, error)
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

func (svc *Service) CreateSet(ctx context.Context, actor user.User, courseID string, ns NewSet) (Set, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return Set{}, err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return Set{}, err
	}

	now := time.Now().UTC()
	set := Set{
		CourseID:  courseID,
		Title:     ns.Title,
		PassPct:   ns.PassPct,
		Questions: make([]Question, 0, len(ns.Questions)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, q := range ns.Questions {
		set.Questions = append(set.Questions, Question{ID: uuid.New().String(), Prompt: q.Prompt, MaxPoints: q.MaxPoints})
	}
	return svc.repo.CreateSet(ctx, set)
}

func (svc *Service) GetSetByID(ctx context.Context, id string) (Set, error) {
	return svc.repo.GetSetByID(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string) ([]Set, error) {
	return svc.repo.QueryCourseSets(ctx, courseID)
}

func (svc *Service) GetAttemptByID(ctx context.Context, id string) (Attempt, error) {
	return svc.repo.GetAttemptByID(ctx, id)
}

func (svc *Service) DeleteSet(ctx context.Context, actor user.User, id string) error {
	set, err := svc.repo.GetSetByID(ctx, id)
	if err != nil {
		return err
	}
	crs, err := svc.courses.GetCourseByID(ctx, set.CourseID)
	if err != nil {
		return err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return err
	}
	return svc.repo.DeleteSet(ctx, id)
}

// Start opens a fresh attempt for the student. Attempts get their own
// collision-free ID from the repository; there is no bounded retry loop.
func (svc *Service) Start(ctx context.Context, studentID, setID string) (Attempt, error) {
	set, err := svc.repo.GetSetByID(ctx, setID)
	if err != nil {
		return Attempt{}, err
	}

	ok, err := svc.gate.IsApproved(ctx, set.CourseID, studentID)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "checking enrollment")
	}
	if !ok {
		return Attempt{}, ErrNotEnrolled
	}

	att := Attempt{
		SetID:     setID,
		CourseID:  set.CourseID,
		StudentID: studentID,
		Status:    StatusInProgress,
		StartedAt: time.Now().UTC(),
	}
	return svc.repo.CreateAttempt(ctx, att)
}

// Submit hands the student's written answers in for grading.
func (svc *Service) Submit(ctx context.Context, studentID, attemptID string, sa SubmitAttempt) (Attempt, error) {
	att, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if att.StudentID != studentID {
		return Attempt{}, core.ErrPermissionDenied
	}
	if att.Status != StatusInProgress {
		return Attempt{}, ErrAttemptClosed
	}

	set, err := svc.repo.GetSetByID(ctx, att.SetID)
	if err != nil {
		return Attempt{}, err
	}
	known := make(map[string]bool, len(set.Questions))
	for _, q := range set.Questions {
		known[q.ID] = true
	}

	att.Answers = make([]Answer, 0, len(sa.Answers))
	for _, a := range sa.Answers {
		if !known[a.QuestionID] {
			return Attempt{}, ErrUnknownQuestion
		}
		att.Answers = append(att.Answers, Answer{QuestionID: a.QuestionID, Text: a.Text})
	}
	att.Status = StatusSubmitted
	att.SubmittedAt = time.Now().UTC()
	return svc.repo.UpdateAttempt(ctx, att)
}

// Abandon closes an open attempt without grading; it never counts toward progress.
func (svc *Service) Abandon(ctx context.Context, studentID, attemptID string) (Attempt, error) {
	att, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if att.StudentID != studentID {
		return Attempt{}, core.ErrPermissionDenied
	}
	if att.Status != StatusInProgress {
		return Attempt{}, ErrAttemptClosed
	}
	att.Status = StatusAbandoned
	return svc.repo.UpdateAttempt(ctx, att)
}

// Grade applies a teacher's point assignments, derives the attempt's outcome
// and marks it completed, then refreshes the student's course progress.
// Grading is the moment a set attempt becomes terminal for aggregation.
func (svc *Service) Grade(ctx context.Context, actor user.User, attemptID string, ga GradeAttempt) (Attempt, error) {
	att, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	switch att.Status {
	case StatusSubmitted:
	case StatusGraded, StatusCompleted:
		return Attempt{}, ErrAlreadyGraded
	default:
		return Attempt{}, ErrNotSubmitted
	}

	set, err := svc.repo.GetSetByID(ctx, att.SetID)
	if err != nil {
		return Attempt{}, err
	}
	crs, err := svc.courses.GetCourseByID(ctx, set.CourseID)
	if err != nil {
		return Attempt{}, err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return Attempt{}, err
	}

	maxPoints := make(map[string]int, len(set.Questions))
	for _, q := range set.Questions {
		maxPoints[q.ID] = q.MaxPoints
		att.TotalPoints += q.MaxPoints
	}
	points := make(map[string]int, len(ga.Grades))
	for _, g := range ga.Grades {
		max, ok := maxPoints[g.QuestionID]
		if !ok {
			return Attempt{}, ErrUnknownQuestion
		}
		if g.Points > max {
			return Attempt{}, ErrPointsTooHigh
		}
		points[g.QuestionID] = g.Points
	}

	att.Score = 0
	for i, a := range att.Answers {
		att.Answers[i].Points = points[a.QuestionID]
		att.Answers[i].Graded = true
		att.Score += points[a.QuestionID]
	}
	if att.TotalPoints > 0 {
		att.Percentage = int(math.Round(float64(att.Score) / float64(att.TotalPoints) * 100))
	}
	att.Passed = att.Percentage >= set.PassPct
	att.Status = StatusCompleted
	att.GradedAt = time.Now().UTC()

	att, err = svc.repo.UpdateAttempt(ctx, att)
	if err != nil {
		return Attempt{}, err
	}

	if _, err = svc.aggregator.Refresh(ctx, att.CourseID, att.StudentID); err != nil {
		return att, errors.Wrap(err, "refreshing course progress")
	}
	return att, nil
}

func (svc *Service) QueryStudentAttempts(ctx context.Context, setID, studentID string) ([]Attempt, error) {
	return svc.repo.QueryStudentAttempts(ctx, setID, studentID)
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
