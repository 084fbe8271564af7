package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
)

type enrollmentRepository struct {
	store *Store
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(store *Store) *enrollmentRepository {
	return &enrollmentRepository{store: store}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr.ID = uuid.New().String()
	repo.store.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr, ok := repo.store.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return enr, nil
}

func (repo enrollmentRepository) GetActiveEnrollment(ctx context.Context, courseID, studentID string) (enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr, ok := repo.activeLocked(courseID, studentID)
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return enr, nil
}

// activeLocked finds the single non-cancelled record for the pair.
// Callers must hold the store lock.
func (repo enrollmentRepository) activeLocked(courseID, studentID string) (enrollment.Enrollment, bool) {
	for _, enr := range repo.store.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID && !enr.IsCancelled() {
			return enr, true
		}
	}
	return enrollment.Enrollment{}, false
}

func (repo enrollmentRepository) QueryCourseEnrollments(ctx context.Context, courseID string) ([]enrollment.Enrollment, error) {
	return repo.query(func(enr enrollment.Enrollment) bool { return enr.CourseID == courseID })
}

func (repo enrollmentRepository) QueryStudentEnrollments(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	return repo.query(func(enr enrollment.Enrollment) bool { return enr.StudentID == studentID })
}

func (repo enrollmentRepository) query(match func(enrollment.Enrollment) bool) ([]enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	var enrs []enrollment.Enrollment
	for _, enr := range repo.store.enrollments {
		if match(enr) {
			enrs = append(enrs, enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.Before(enrs[j].EnrolledAt) })
	return enrs, nil
}

// ApproveEnrollment promotes a pending record and bumps student_count inside
// the same critical section, so a concurrent second approval loses the race
// cleanly instead of double-counting.
func (repo enrollmentRepository) ApproveEnrollment(ctx context.Context, id string, at time.Time) (enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr, ok := repo.store.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	switch enr.Status {
	case enrollment.StatusApproved:
		return enrollment.Enrollment{}, enrollment.ErrAlreadyApproved
	case enrollment.StatusCancelled:
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	if err := repo.store.incrementStatLocked(enr.CourseID, course.StatStudentCount, 1); err != nil {
		return enrollment.Enrollment{}, err
	}
	enr.Status = enrollment.StatusApproved
	enr.InstructorApproved = true
	enr.ApprovedAt = at.UTC()
	repo.store.enrollments[id] = enr
	return enr, nil
}

func (repo enrollmentRepository) CancelEnrollment(ctx context.Context, id string, at time.Time) (enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr, ok := repo.store.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if enr.IsCancelled() {
		return enr, nil
	}
	if enr.IsApproved() {
		if err := repo.store.incrementStatLocked(enr.CourseID, course.StatStudentCount, -1); err != nil {
			return enrollment.Enrollment{}, err
		}
	}
	enr.Status = enrollment.StatusCancelled
	enr.CancelledAt = at.UTC()
	repo.store.enrollments[id] = enr
	return enr, nil
}

func (repo enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr, ok := repo.store.enrollments[id]
	if !ok {
		return enrollment.ErrNotFound
	}
	if enr.IsApproved() {
		if err := repo.store.incrementStatLocked(enr.CourseID, course.StatStudentCount, -1); err != nil {
			return err
		}
	}
	delete(repo.store.enrollments, id)
	return nil
}

func (repo enrollmentRepository) SetProgress(ctx context.Context, courseID, studentID string, pct int) (enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr, ok := repo.activeLocked(courseID, studentID)
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	enr.Progress = pct
	repo.store.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo enrollmentRepository) ApproveCompletion(ctx context.Context, courseID, studentID string, at time.Time) (enrollment.Enrollment, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	enr, ok := repo.activeLocked(courseID, studentID)
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if !enr.IsApproved() || enr.Progress != 100 {
		return enrollment.Enrollment{}, enrollment.ErrNotEligible
	}
	enr.Completed = true
	enr.GraduatedAt = at.UTC()
	repo.store.enrollments[enr.ID] = enr
	return enr, nil
}
