package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
)

type courseRepository struct {
	store *Store
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(store *Store) *courseRepository {
	return &courseRepository{store: store}
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	excluded := make(map[string]bool, len(excludedCourses))
	for _, crs := range excludedCourses {
		excluded[crs.ID] = true
	}
	for _, crs := range repo.store.courses {
		if !excluded[crs.ID] && crs.Code == code {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	crs.ID = uuid.New().String()
	repo.store.courses[crs.ID] = crs
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	crs, ok := repo.store.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) FilterCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	courses := make([]course.Course, 0, len(repo.store.courses))
	for _, crs := range repo.store.courses {
		if filter != nil {
			if filter.Search != "" && !containsFold(crs.Code, filter.Search) && !containsFold(crs.Title, filter.Search) {
				continue
			}
			if filter.TeacherID != "" && crs.TeacherID != filter.TeacherID {
				continue
			}
			if filter.Published != nil && crs.Published != *filter.Published {
				continue
			}
		}
		courses = append(courses, crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, published *bool) (course.Course, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	existing, ok := repo.store.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if crs.Title != "" {
		existing.Title = crs.Title
	}
	if crs.Description != "" {
		existing.Description = crs.Description
	}
	if !crs.UpdatedAt.IsZero() {
		existing.UpdatedAt = crs.UpdatedAt
	}
	if published != nil {
		existing.Published = *published
	}
	repo.store.courses[crs.ID] = existing
	return existing, nil
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	for _, id := range ids {
		delete(repo.store.courses, id)
	}
	return nil
}

func (repo courseRepository) IncrementStat(ctx context.Context, courseID string, field course.StatField, delta int) error {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	return repo.store.incrementStatLocked(courseID, field, delta)
}
