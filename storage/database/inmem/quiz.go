package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/quiz"
)

type quizRepository struct {
	store *Store
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(store *Store) *quizRepository {
	return &quizRepository{store: store}
}

func (repo quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if err := repo.store.incrementStatLocked(qz.CourseID, course.StatTotalQuizzes, 1); err != nil {
		return quiz.Quiz{}, err
	}
	qz.ID = uuid.New().String()
	repo.store.quizzes[qz.ID] = qz
	return qz, nil
}

func (repo quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	qz, ok := repo.store.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return qz, nil
}

func (repo quizRepository) GetQuizByCourseID(ctx context.Context, courseID string) (quiz.Quiz, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	for _, qz := range repo.store.quizzes {
		if qz.CourseID == courseID {
			return qz, nil
		}
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if _, ok := repo.store.quizzes[qz.ID]; !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	repo.store.quizzes[qz.ID] = qz
	return qz, nil
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id string) error {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	qz, ok := repo.store.quizzes[id]
	if !ok {
		return quiz.ErrNotFound
	}
	if err := repo.store.incrementStatLocked(qz.CourseID, course.StatTotalQuizzes, -1); err != nil {
		return err
	}
	delete(repo.store.quizzes, id)
	return nil
}

func (repo quizRepository) GetAttempt(ctx context.Context, quizID, studentID string) (quiz.Attempt, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	att, ok := repo.store.quizAttempts[pairKey(quizID, studentID)]
	if !ok {
		return quiz.Attempt{}, quiz.ErrNotFound
	}
	return att, nil
}

func (repo quizRepository) GetCourseAttempt(ctx context.Context, courseID, studentID string) (quiz.Attempt, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	for _, att := range repo.store.quizAttempts {
		if att.CourseID == courseID && att.StudentID == studentID {
			return att, nil
		}
	}
	return quiz.Attempt{}, quiz.ErrNotFound
}

func (repo quizRepository) UpsertAttempt(ctx context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	key := pairKey(att.QuizID, att.StudentID)
	if existing, ok := repo.store.quizAttempts[key]; ok {
		att.ID = existing.ID
	} else if att.ID == "" {
		att.ID = uuid.New().String()
	}
	repo.store.quizAttempts[key] = att
	return att, nil
}
