package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
)

type shortQuestionRepository struct {
	store *Store
}

var _ shortquestion.Repository = (*shortQuestionRepository)(nil) // interface compliance check

func NewShortQuestionRepository(store *Store) *shortQuestionRepository {
	return &shortQuestionRepository{store: store}
}

func (repo shortQuestionRepository) CreateSet(ctx context.Context, set shortquestion.Set) (shortquestion.Set, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if err := repo.store.incrementStatLocked(set.CourseID, course.StatTotalShortQuestionSets, 1); err != nil {
		return shortquestion.Set{}, err
	}
	set.ID = uuid.New().String()
	repo.store.sets[set.ID] = set
	return set, nil
}

func (repo shortQuestionRepository) GetSetByID(ctx context.Context, id string) (shortquestion.Set, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	set, ok := repo.store.sets[id]
	if !ok {
		return shortquestion.Set{}, shortquestion.ErrNotFound
	}
	return set, nil
}

func (repo shortQuestionRepository) QueryCourseSets(ctx context.Context, courseID string) ([]shortquestion.Set, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	var sets []shortquestion.Set
	for _, set := range repo.store.sets {
		if set.CourseID == courseID {
			sets = append(sets, set)
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].CreatedAt.Before(sets[j].CreatedAt) })
	return sets, nil
}

func (repo shortQuestionRepository) DeleteSet(ctx context.Context, id string) error {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	set, ok := repo.store.sets[id]
	if !ok {
		return shortquestion.ErrNotFound
	}
	if err := repo.store.incrementStatLocked(set.CourseID, course.StatTotalShortQuestionSets, -1); err != nil {
		return err
	}
	delete(repo.store.sets, id)
	return nil
}

func (repo shortQuestionRepository) CreateAttempt(ctx context.Context, att shortquestion.Attempt) (shortquestion.Attempt, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	att.ID = uuid.New().String()
	repo.store.sqAttempts[att.ID] = att
	return att, nil
}

func (repo shortQuestionRepository) GetAttemptByID(ctx context.Context, id string) (shortquestion.Attempt, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	att, ok := repo.store.sqAttempts[id]
	if !ok {
		return shortquestion.Attempt{}, shortquestion.ErrAttemptNotFound
	}
	return att, nil
}

func (repo shortQuestionRepository) UpdateAttempt(ctx context.Context, att shortquestion.Attempt) (shortquestion.Attempt, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	if _, ok := repo.store.sqAttempts[att.ID]; !ok {
		return shortquestion.Attempt{}, shortquestion.ErrAttemptNotFound
	}
	repo.store.sqAttempts[att.ID] = att
	return att, nil
}

func (repo shortQuestionRepository) QueryStudentAttempts(ctx context.Context, setID, studentID string) ([]shortquestion.Attempt, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	var attempts []shortquestion.Attempt
	for _, att := range repo.store.sqAttempts {
		if att.SetID == setID && att.StudentID == studentID {
			attempts = append(attempts, att)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].StartedAt.Before(attempts[j].StartedAt) })
	return attempts, nil
}

func (repo shortQuestionRepository) QueryTerminalResults(ctx context.Context, courseID, studentID string) ([]shortquestion.SetResult, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()

	// latest completed attempt per set wins
	latest := make(map[string]shortquestion.Attempt)
	for _, att := range repo.store.sqAttempts {
		if att.CourseID != courseID || att.StudentID != studentID || att.Status != shortquestion.StatusCompleted {
			continue
		}
		if prev, ok := latest[att.SetID]; !ok || att.GradedAt.After(prev.GradedAt) {
			latest[att.SetID] = att
		}
	}
	var results []shortquestion.SetResult
	for setID, att := range latest {
		results = append(results, shortquestion.SetResult{SetID: setID, Passed: att.Passed})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SetID < results[j].SetID })
	return results, nil
}
