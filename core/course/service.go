package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("course not found")
	ErrCodeExists = errors.New("a course with this code already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// FilterCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Course.Code or Course.Title.
		FilterCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, published *bool) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error
		// IncrementStat atomically adjusts one Stats counter by delta.
		IncrementStat(ctx context.Context, courseID string, field StatField, delta int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if !(actor.IsTeacher() || actor.IsAdmin()) {
		return Course{}, core.ErrPermissionDenied
	}
	if err := svc.repo.CheckCodeUniqueness(ctx, nc.Code); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		Code:        nc.Code,
		Title:       nc.Title,
		Description: nc.Description,
		TeacherID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.FilterCourses(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.checkOwnership(actor, crs); err != nil {
		return Course{}, err
	}

	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs, uc.Published)
}

func (svc *Service) Publish(ctx context.Context, actor user.User, id string) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.checkOwnership(actor, crs); err != nil {
		return Course{}, err
	}

	published := true
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs, &published)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.checkOwnership(actor, crs); err != nil {
		return err
	}
	return svc.repo.DeleteCoursesByID(ctx, id)
}

// checkOwnership allows admins and the course's own teacher.
func (svc *Service) checkOwnership(actor user.User, crs Course) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsTeacher() && crs.TeacherID == actor.ID {
		return nil
	}
	return core.ErrPermissionDenied
}
