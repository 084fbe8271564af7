package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("lesson not found")
	ErrNotEnrolled = errors.New("student is not enrolled in this course")
)

type (
	Repository interface {
		// CreateLesson inserts the lesson and increments the course's
		// total_lessons counter in the same transaction.
		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		QueryCourseLessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, les Lesson) (Lesson, error)
		// DeleteLesson removes the lesson and decrements the course's
		// total_lessons counter in the same transaction.
		DeleteLesson(ctx context.Context, id string) error

		CountCourseLessons(ctx context.Context, courseID string) (int, error)
		CountCompletedLessons(ctx context.Context, courseID, studentID string) (int, error)
		// UpsertStudentLesson creates or replaces the (student, lesson) progress record.
		UpsertStudentLesson(ctx context.Context, sl StudentLesson) (StudentLesson, error)
		QueryStudentLessons(ctx context.Context, courseID, studentID string) ([]StudentLesson, error)
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

func (svc *Service) Create(ctx context.Context, actor user.User, courseID string, nl NewLesson) (Lesson, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return Lesson{}, err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return Lesson{}, err
	}

	now := time.Now().UTC()
	les := Lesson{
		CourseID:    courseID,
		Title:       nl.Title,
		Content:     nl.Content,
		Position:    nl.Position,
		DurationMin: nl.DurationMin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateLesson(ctx, les)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryCourseLessons(ctx, courseID)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	les, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return err
	}
	crs, err := svc.courses.GetCourseByID(ctx, les.CourseID)
	if err != nil {
		return err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return err
	}
	return svc.repo.DeleteLesson(ctx, id)
}

// MarkCompleted records a lesson-completion event for the student and
// refreshes the derived course progress. Calling it again for the same
// lesson is a no-op on the counts (the progress record is upserted).
func (svc *Service) MarkCompleted(ctx context.Context, studentID, lessonID string, cl CompleteLesson) (StudentLesson, error) {
	return svc.markLesson(ctx, studentID, lessonID, cl.TimeSpentSec, true)
}

// MarkIncomplete reverts a completion event, e.g. when a teacher resets content.
func (svc *Service) MarkIncomplete(ctx context.Context, studentID, lessonID string) (StudentLesson, error) {
	return svc.markLesson(ctx, studentID, lessonID, 0, false)
}

func (svc *Service) markLesson(ctx context.Context, studentID, lessonID string, timeSpent int, completed bool) (StudentLesson, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return StudentLesson{}, err
	}

	ok, err := svc.gate.IsApproved(ctx, les.CourseID, studentID)
	if err != nil {
		return StudentLesson{}, errors.Wrap(err, "checking enrollment")
	}
	if !ok {
		return StudentLesson{}, ErrNotEnrolled
	}

	sl := StudentLesson{
		LessonID:     lessonID,
		CourseID:     les.CourseID,
		StudentID:    studentID,
		Completed:    completed,
		TimeSpentSec: timeSpent,
	}
	if completed {
		sl.CompletedAt = time.Now().UTC()
	}
	sl, err = svc.repo.UpsertStudentLesson(ctx, sl)
	if err != nil {
		return StudentLesson{}, err
	}

	if _, err = svc.aggregator.Refresh(ctx, les.CourseID, studentID); err != nil {
		// the completion record is committed; progress will be corrected on the next trigger
		return sl, errors.Wrap(err, "refreshing course progress")
	}
	return sl, nil
}

func (svc *Service) QueryStudentProgress(ctx context.Context, courseID, studentID string) ([]StudentLesson, error) {
	return svc.repo.QueryStudentLessons(ctx, courseID, studentID)
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
