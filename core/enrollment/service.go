package enrollment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("student already has an active enrollment for this course")
	ErrAlreadyApproved = errors.New("enrollment is already approved")
	ErrNotEligible     = errors.New("enrollment is not eligible for completion")
)

type (
	// Repository owns the ledger's rows and the course counter writes that go
	// with them. Every method that changes both the enrollment status and the
	// course's student_count applies the two writes in one transaction; the
	// status guard is part of the conditional update, so a losing concurrent
	// writer observes "no matching row" instead of a double-counted mutation.
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		// GetActiveEnrollment returns the single non-cancelled record for the pair.
		GetActiveEnrollment(ctx context.Context, courseID, studentID string) (Enrollment, error)
		QueryCourseEnrollments(ctx context.Context, courseID string) ([]Enrollment, error)
		QueryStudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)

		// ApproveEnrollment transitions to approved and increments the course's
		// student_count by 1. Returns ErrAlreadyApproved when the row was
		// already approved, ErrNotFound when it does not exist.
		ApproveEnrollment(ctx context.Context, id string, at time.Time) (Enrollment, error)
		// CancelEnrollment sets status=cancelled and decrements student_count
		// iff the row was approved.
		CancelEnrollment(ctx context.Context, id string, at time.Time) (Enrollment, error)
		// DeleteEnrollment hard-deletes the row, decrementing student_count
		// iff it was approved.
		DeleteEnrollment(ctx context.Context, id string) error

		// SetProgress writes only the derived progress field; it never touches
		// status or counters.
		SetProgress(ctx context.Context, courseID, studentID string, pct int) (Enrollment, error)
		// ApproveCompletion marks the enrollment completed iff it is approved
		// and progress == 100; the guard is applied atomically with the write.
		ApproveCompletion(ctx context.Context, courseID, studentID string, at time.Time) (Enrollment, error)
	}

	// CourseStore is the slice of the course domain this service needs.
	CourseStore interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
	}

	// UserStore resolves users for notifications and ownership checks.
	UserStore interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		courses CourseStore
		users   UserStore
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, courses CourseStore, users UserStore, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		courses: courses,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Request creates a pending enrollment for the (student, course) pair and
// notifies the course's teacher. Notification is best-effort; its failure
// never rolls the enrollment back.
func (svc *Service) Request(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	if _, err = svc.repo.GetActiveEnrollment(ctx, courseID, studentID); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	} else if errors.Cause(err) != ErrNotFound {
		return Enrollment{}, err
	}

	enr := Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		Status:     StatusPending,
		EnrolledAt: time.Now().UTC(),
	}
	enr, err = svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		return Enrollment{}, err
	}

	svc.notify(ctx, crs.TeacherID, "New enrollment request", "enrollment_request", struct {
		Course string
	}{Course: crs.Title})
	return enr, nil
}

// Approve transitions the enrollment to approved. The transition and the
// student_count increment commit in one transaction; a duplicate or
// concurrent approval returns ErrAlreadyApproved with no second increment.
func (svc *Service) Approve(ctx context.Context, actor user.User, id string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	crs, err := svc.courses.GetCourseByID(ctx, enr.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return Enrollment{}, err
	}

	enr, err = svc.repo.ApproveEnrollment(ctx, id, time.Now().UTC())
	if err != nil {
		return Enrollment{}, err
	}

	svc.notify(ctx, enr.StudentID, "Enrollment approved", "enrollment_approved", struct {
		Course string
	}{Course: crs.Title})
	return enr, nil
}

// Reject hard-deletes the enrollment, reversing the counter iff it was approved.
func (svc *Service) Reject(ctx context.Context, actor user.User, id string) error {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return err
	}
	crs, err := svc.courses.GetCourseByID(ctx, enr.CourseID)
	if err != nil {
		return err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, id)
}

// Cancel is permitted only by the owning student.
func (svc *Service) Cancel(ctx context.Context, studentID, id string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.StudentID != studentID {
		return Enrollment{}, core.ErrPermissionDenied
	}
	return svc.repo.CancelEnrollment(ctx, id, time.Now().UTC())
}

// ForceDelete is permitted only by the course's teacher or an admin.
func (svc *Service) ForceDelete(ctx context.Context, actor user.User, id string) error {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return err
	}
	crs, err := svc.courses.GetCourseByID(ctx, enr.CourseID)
	if err != nil {
		return err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, id)
}

// ApproveCompletion signs off a student's finished course: the enrollment
// must be approved with progress == 100, otherwise ErrNotEligible.
func (svc *Service) ApproveCompletion(ctx context.Context, actor user.User, courseID, studentID string) (Enrollment, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if err = checkCourseOwnership(actor, crs); err != nil {
		return Enrollment{}, err
	}

	enr, err := svc.repo.ApproveCompletion(ctx, courseID, studentID, time.Now().UTC())
	if err != nil {
		return Enrollment{}, err
	}

	svc.notify(ctx, enr.StudentID, "Course completed", "course_completed", struct {
		Course string
	}{Course: crs.Title})
	return enr, nil
}

// SetProgress persists a freshly derived progress percentage. It writes the
// progress field only — never status, never counters.
func (svc *Service) SetProgress(ctx context.Context, courseID, studentID string, pct int) error {
	_, err := svc.repo.SetProgress(ctx, courseID, studentID, pct)
	return err
}

// IsApproved reports whether the student currently holds an approved
// enrollment for the course.
func (svc *Service) IsApproved(ctx context.Context, courseID, studentID string) (bool, error) {
	enr, err := svc.repo.GetActiveEnrollment(ctx, courseID, studentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return enr.IsApproved(), nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.repo.QueryCourseEnrollments(ctx, courseID)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryStudentEnrollments(ctx, studentID)
}

// notify emails a user. Failures are logged and swallowed; they must never
// surface as a failure of the ledger operation itself.
func (svc *Service) notify(ctx context.Context, userID, subject, template string, data interface{}) {
	usr, err := svc.users.GetUserByID(ctx, userID)
	if err != nil {
		svc.logger.Warn("enrollment: skipping notification", errors.Wrap(err, "finding recipient"))
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: template,
		TemplateData: data,
	})
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
