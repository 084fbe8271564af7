package progress

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core/quiz"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
)

type (
	lessonStoreStub struct {
		total, completed int
		err              error
	}
	quizStoreStub struct {
		att quiz.Attempt
		err error
	}
	shortStoreStub struct {
		results []shortquestion.SetResult
		err     error
	}
	sinkSpy struct {
		pct    int
		called bool
		err    error
	}
)

func (s lessonStoreStub) CountCourseLessons(ctx context.Context, courseID string) (int, error) {
	return s.total, s.err
}

func (s lessonStoreStub) CountCompletedLessons(ctx context.Context, courseID, studentID string) (int, error) {
	return s.completed, s.err
}

func (s quizStoreStub) GetCourseAttempt(ctx context.Context, courseID, studentID string) (quiz.Attempt, error) {
	return s.att, s.err
}

func (s shortStoreStub) QueryTerminalResults(ctx context.Context, courseID, studentID string) ([]shortquestion.SetResult, error) {
	return s.results, s.err
}

func (s *sinkSpy) SetProgress(ctx context.Context, courseID, studentID string, pct int) error {
	s.called = true
	s.pct = pct
	return s.err
}

func results(passed ...bool) []shortquestion.SetResult {
	res := make([]shortquestion.SetResult, 0, len(passed))
	for i, p := range passed {
		res = append(res, shortquestion.SetResult{SetID: string(rune('a' + i)), Passed: p})
	}
	return res
}

func TestService_Compute(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		lessons lessonStoreStub
		quizzes quizStoreStub
		shortqs shortStoreStub
		want    int
	}{
		{
			name:    "nothing done",
			quizzes: quizStoreStub{err: quiz.ErrNotFound},
			want:    0,
		},
		{
			name:    "no lessons defined contributes zero",
			lessons: lessonStoreStub{total: 0, completed: 0},
			quizzes: quizStoreStub{att: quiz.Attempt{Passed: true}},
			shortqs: shortStoreStub{results: results(true)},
			want:    40,
		},
		{
			name:    "half the lessons",
			lessons: lessonStoreStub{total: 4, completed: 2},
			quizzes: quizStoreStub{err: quiz.ErrNotFound},
			want:    30,
		},
		{
			name:    "lesson share rounds half away from zero",
			lessons: lessonStoreStub{total: 8, completed: 3}, // 22.5
			quizzes: quizStoreStub{err: quiz.ErrNotFound},
			want:    23,
		},
		{
			name:    "failed quiz earns nothing",
			lessons: lessonStoreStub{total: 1, completed: 1},
			quizzes: quizStoreStub{att: quiz.Attempt{Percentage: 65, Passed: false}},
			want:    60,
		},
		{
			name:    "passed quiz earns full weight",
			lessons: lessonStoreStub{total: 1, completed: 1},
			quizzes: quizStoreStub{att: quiz.Attempt{Percentage: 70, Passed: true}},
			want:    80,
		},
		{
			name:    "all graded sets passed",
			quizzes: quizStoreStub{err: quiz.ErrNotFound},
			shortqs: shortStoreStub{results: results(true, true)},
			want:    20,
		},
		{
			name:    "short-answer credit is proportional",
			quizzes: quizStoreStub{err: quiz.ErrNotFound},
			shortqs: shortStoreStub{results: results(true, false, false)}, // 1/3 of 20
			want:    7,
		},
		{
			name:    "everything done",
			lessons: lessonStoreStub{total: 10, completed: 10},
			quizzes: quizStoreStub{att: quiz.Attempt{Passed: true}},
			shortqs: shortStoreStub{results: results(true)},
			want:    100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.lessons, tt.quizzes, tt.shortqs, &sinkSpy{})
			got, err := svc.Compute(ctx, "crs", "std")
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compute() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_Compute_error(t *testing.T) {
	boom := errors.New("kaboom")
	svc := NewService(lessonStoreStub{err: boom}, quizStoreStub{}, shortStoreStub{}, &sinkSpy{})

	_, err := svc.Compute(context.Background(), "crs", "std")
	if !IsComputeError(err) {
		t.Errorf("Compute() error = %v, want ComputeError", err)
	}
}

func TestService_Refresh(t *testing.T) {
	sink := &sinkSpy{}
	svc := NewService(
		lessonStoreStub{total: 2, completed: 1},
		quizStoreStub{att: quiz.Attempt{Passed: true}},
		shortStoreStub{},
		sink,
	)

	pct, err := svc.Refresh(context.Background(), "crs", "std")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if pct != 50 {
		t.Errorf("Refresh() = %v, want 50", pct)
	}
	if !sink.called || sink.pct != 50 {
		t.Errorf("sink got (%v, %v), want (true, 50)", sink.called, sink.pct)
	}
}

func TestService_Refresh_noWriteOnComputeError(t *testing.T) {
	sink := &sinkSpy{}
	svc := NewService(lessonStoreStub{err: errors.New("kaboom")}, quizStoreStub{}, shortStoreStub{}, sink)

	if _, err := svc.Refresh(context.Background(), "crs", "std"); err == nil {
		t.Fatal("Refresh() expected error")
	}
	if sink.called {
		t.Error("sink written despite compute failure")
	}
}
