package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
)

type lessonRepository struct {
	store *Store
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(store *Store) *lessonRepository {
	return &lessonRepository{store: store}
}

func (repo lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if err := repo.store.incrementStatLocked(les.CourseID, course.StatTotalLessons, 1); err != nil {
		return lesson.Lesson{}, err
	}
	les.ID = uuid.New().String()
	repo.store.lessons[les.ID] = les
	return les, nil
}

func (repo lessonRepository) GetLessonByID(ctx context.Context, id string) (lesson.Lesson, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	les, ok := repo.store.lessons[id]
	if !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return les, nil
}

func (repo lessonRepository) QueryCourseLessons(ctx context.Context, courseID string) ([]lesson.Lesson, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	var lessons []lesson.Lesson
	for _, les := range repo.store.lessons {
		if les.CourseID == courseID {
			lessons = append(lessons, les)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Position != lessons[j].Position {
			return lessons[i].Position < lessons[j].Position
		}
		return lessons[i].CreatedAt.Before(lessons[j].CreatedAt)
	})
	return lessons, nil
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if _, ok := repo.store.lessons[les.ID]; !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	repo.store.lessons[les.ID] = les
	return les, nil
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, id string) error {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	les, ok := repo.store.lessons[id]
	if !ok {
		return lesson.ErrNotFound
	}
	if err := repo.store.incrementStatLocked(les.CourseID, course.StatTotalLessons, -1); err != nil {
		return err
	}
	delete(repo.store.lessons, id)
	return nil
}

func (repo lessonRepository) CountCourseLessons(ctx context.Context, courseID string) (int, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	count := 0
	for _, les := range repo.store.lessons {
		if les.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (repo lessonRepository) CountCompletedLessons(ctx context.Context, courseID, studentID string) (int, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	count := 0
	for _, sl := range repo.store.studentLessons {
		if sl.CourseID == courseID && sl.StudentID == studentID && sl.Completed {
			count++
		}
	}
	return count, nil
}

func (repo lessonRepository) UpsertStudentLesson(ctx context.Context, sl lesson.StudentLesson) (lesson.StudentLesson, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	key := pairKey(sl.LessonID, sl.StudentID)
	if existing, ok := repo.store.studentLessons[key]; ok {
		sl.ID = existing.ID
	} else if sl.ID == "" {
		sl.ID = uuid.New().String()
	}
	repo.store.studentLessons[key] = sl
	return sl, nil
}

func (repo lessonRepository) QueryStudentLessons(ctx context.Context, courseID, studentID string) ([]lesson.StudentLesson, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	var out []lesson.StudentLesson
	for _, sl := range repo.store.studentLessons {
		if sl.CourseID == courseID && sl.StudentID == studentID {
			out = append(out, sl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out, nil
}
