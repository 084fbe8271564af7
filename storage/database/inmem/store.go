// Package inmem provides map-backed repository implementations guarded by a
// single mutex. They honor the same transactional contracts as the sqlx
// repositories (status guards and counter updates applied atomically), which
// makes them suitable for tests and local development without a database.
package inmem

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
	"github.com/LeahNg97/KOLP-sub001/core/quiz"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

// Store holds all domain records behind one lock. Compound operations (status
// transition + counter adjustment) run entirely inside a single critical
// section, so concurrent callers observe the same guard semantics a database
// transaction would give them.
type Store struct {
	mu sync.Mutex

	users          map[string]user.User
	courses        map[string]course.Course
	lessons        map[string]lesson.Lesson
	studentLessons map[string]lesson.StudentLesson // keyed lessonID + "|" + studentID
	quizzes        map[string]quiz.Quiz
	quizAttempts   map[string]quiz.Attempt // keyed quizID + "|" + studentID
	sets           map[string]shortquestion.Set
	sqAttempts     map[string]shortquestion.Attempt
	enrollments    map[string]enrollment.Enrollment
}

func NewStore() *Store {
	return &Store{
		users:          make(map[string]user.User),
		courses:        make(map[string]course.Course),
		lessons:        make(map[string]lesson.Lesson),
		studentLessons: make(map[string]lesson.StudentLesson),
		quizzes:        make(map[string]quiz.Quiz),
		quizAttempts:   make(map[string]quiz.Attempt),
		sets:           make(map[string]shortquestion.Set),
		sqAttempts:     make(map[string]shortquestion.Attempt),
		enrollments:    make(map[string]enrollment.Enrollment),
	}
}

func pairKey(a, b string) string { return a + "|" + b }

// incrementStatLocked adjusts one course counter, clamping at zero.
// Callers must hold s.mu.
func (s *Store) incrementStatLocked(courseID string, field course.StatField, delta int) error {
	crs, ok := s.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	bump := func(n int) int {
		if n += delta; n < 0 {
			return 0
		}
		return n
	}
	switch field {
	case course.StatStudentCount:
		crs.Stats.StudentCount = bump(crs.Stats.StudentCount)
	case course.StatTotalLessons:
		crs.Stats.TotalLessons = bump(crs.Stats.TotalLessons)
	case course.StatTotalQuizzes:
		crs.Stats.TotalQuizzes = bump(crs.Stats.TotalQuizzes)
	case course.StatTotalShortQuestionSets:
		crs.Stats.TotalShortQuestionSets = bump(crs.Stats.TotalShortQuestionSets)
	default:
		return errors.Errorf("unknown course stat field %q", field)
	}
	s.courses[courseID] = crs
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
