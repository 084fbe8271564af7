package shortquestion_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
	"github.com/LeahNg97/KOLP-sub001/core/user"
	"github.com/LeahNg97/KOLP-sub001/storage/database/inmem"
	testutil "github.com/LeahNg97/KOLP-sub001/tests"
)

type (
	gateStub struct {
		approved bool
	}
	aggregatorSpy struct {
		refreshed int
	}
)

func (g gateStub) IsApproved(ctx context.Context, courseID, studentID string) (bool, error) {
	return g.approved, nil
}

func (a *aggregatorSpy) Refresh(ctx context.Context, courseID, studentID string) (int, error) {
	a.refreshed++
	return 0, nil
}

type testEnv struct {
	repo       shortquestion.Repository
	svc        *shortquestion.Service
	aggregator *aggregatorSpy

	teacher user.User
	student user.User
	crs     course.Course
	set     shortquestion.Set
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	store := inmem.NewStore()
	usrRepo := inmem.NewUserRepository(store)
	crsRepo := inmem.NewCourseRepository(store)

	env := &testEnv{
		repo:       inmem.NewShortQuestionRepository(store),
		aggregator: &aggregatorSpy{},
	}
	env.svc = shortquestion.NewService(env.repo, crsRepo, gateStub{approved: true}, env.aggregator)

	env.teacher = testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	env.student = testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	env.crs = testutil.CreateCourse(t, crsRepo, "go101", "Go 101", env.teacher.ID, true)
	env.set = testutil.CreateSet(t, env.repo, env.crs.ID, "Essay round", []shortquestion.Question{
		{ID: "q1", Prompt: "Explain interfaces", MaxPoints: 10},
		{ID: "q2", Prompt: "Explain channels", MaxPoints: 10},
	})
	return env
}

func (env *testEnv) submitted(t *testing.T) shortquestion.Attempt {
	t.Helper()
	ctx := context.Background()

	att, err := env.svc.Start(ctx, env.student.ID, env.set.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	att, err = env.svc.Submit(ctx, env.student.ID, att.ID, shortquestion.SubmitAttempt{
		Answers: []shortquestion.SubmitAnswer{
			{QuestionID: "q1", Text: "they describe behavior"},
			{QuestionID: "q2", Text: "they move values between goroutines"},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return att
}

func TestService_Start(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	att, err := env.svc.Start(ctx, env.student.ID, env.set.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if att.Status != shortquestion.StatusInProgress || att.StartedAt.IsZero() {
		t.Errorf("Start() = %+v, want open attempt", att)
	}

	// unlike quizzes there is no overwrite; every start is a new attempt
	att2, err := env.svc.Start(ctx, env.student.ID, env.set.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if att2.ID == att.ID {
		t.Error("Start() reused the attempt ID")
	}

	if _, err = env.svc.Start(ctx, env.student.ID, "nope"); errors.Cause(err) != shortquestion.ErrNotFound {
		t.Errorf("Start() error = %v, want %v", err, shortquestion.ErrNotFound)
	}
}

func TestService_Start_notEnrolled(t *testing.T) {
	env := setup(t)
	env.svc = shortquestion.NewService(env.repo, inmem.NewCourseRepository(inmem.NewStore()), gateStub{approved: false}, env.aggregator)

	if _, err := env.svc.Start(context.Background(), env.student.ID, env.set.ID); errors.Cause(err) != shortquestion.ErrNotEnrolled {
		t.Errorf("Start() error = %v, want %v", err, shortquestion.ErrNotEnrolled)
	}
}

func TestService_Submit(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	att := env.submitted(t)
	if att.Status != shortquestion.StatusSubmitted || att.SubmittedAt.IsZero() {
		t.Errorf("Submit() = %+v, want submitted attempt", att)
	}

	// a submitted attempt is closed to further writes
	_, err := env.svc.Submit(ctx, env.student.ID, att.ID, shortquestion.SubmitAttempt{
		Answers: []shortquestion.SubmitAnswer{{QuestionID: "q1", Text: "changed my mind"}},
	})
	if errors.Cause(err) != shortquestion.ErrAttemptClosed {
		t.Errorf("Submit() error = %v, want %v", err, shortquestion.ErrAttemptClosed)
	}
}

func TestService_Submit_unknownQuestion(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	att, err := env.svc.Start(ctx, env.student.ID, env.set.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_, err = env.svc.Submit(ctx, env.student.ID, att.ID, shortquestion.SubmitAttempt{
		Answers: []shortquestion.SubmitAnswer{{QuestionID: "zz", Text: "?"}},
	})
	if errors.Cause(err) != shortquestion.ErrUnknownQuestion {
		t.Errorf("Submit() error = %v, want %v", err, shortquestion.ErrUnknownQuestion)
	}
}

func TestService_Submit_wrongStudent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	att, err := env.svc.Start(ctx, env.student.ID, env.set.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_, err = env.svc.Submit(ctx, "intruder", att.ID, shortquestion.SubmitAttempt{
		Answers: []shortquestion.SubmitAnswer{{QuestionID: "q1", Text: "!"}},
	})
	if errors.Cause(err) != core.ErrPermissionDenied {
		t.Errorf("Submit() error = %v, want %v", err, core.ErrPermissionDenied)
	}
}

func TestService_Abandon(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	att, err := env.svc.Start(ctx, env.student.ID, env.set.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	att, err = env.svc.Abandon(ctx, env.student.ID, att.ID)
	if err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}
	if att.Status != shortquestion.StatusAbandoned {
		t.Errorf("Status = %v, want %v", att.Status, shortquestion.StatusAbandoned)
	}

	// abandoned attempts never reach the aggregator
	if env.aggregator.refreshed != 0 {
		t.Errorf("aggregator refreshed %v times, want 0", env.aggregator.refreshed)
	}
	if _, err = env.svc.Abandon(ctx, env.student.ID, att.ID); errors.Cause(err) != shortquestion.ErrAttemptClosed {
		t.Errorf("Abandon() error = %v, want %v", err, shortquestion.ErrAttemptClosed)
	}
}

func TestService_Grade(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	att := env.submitted(t)

	// 13/20 = 65% over the 50% bar
	graded, err := env.svc.Grade(ctx, env.teacher, att.ID, shortquestion.GradeAttempt{
		Grades: []shortquestion.Grade{
			{QuestionID: "q1", Points: 6},
			{QuestionID: "q2", Points: 7},
		},
	})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if graded.Score != 13 || graded.TotalPoints != 20 || graded.Percentage != 65 {
		t.Errorf("Grade() = %v/%v (%v%%), want 13/20 (65%%)", graded.Score, graded.TotalPoints, graded.Percentage)
	}
	if !graded.Passed || graded.Status != shortquestion.StatusCompleted || graded.GradedAt.IsZero() {
		t.Errorf("Grade() = %+v, want passed terminal attempt", graded)
	}
	if env.aggregator.refreshed != 1 {
		t.Errorf("aggregator refreshed %v times, want 1", env.aggregator.refreshed)
	}

	// grading is final
	_, err = env.svc.Grade(ctx, env.teacher, att.ID, shortquestion.GradeAttempt{
		Grades: []shortquestion.Grade{{QuestionID: "q1", Points: 1}},
	})
	if errors.Cause(err) != shortquestion.ErrAlreadyGraded {
		t.Errorf("Grade() error = %v, want %v", err, shortquestion.ErrAlreadyGraded)
	}
}

func TestService_Grade_validation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	open, err := env.svc.Start(ctx, env.student.ID, env.set.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err = env.svc.Grade(ctx, env.teacher, open.ID, shortquestion.GradeAttempt{
		Grades: []shortquestion.Grade{{QuestionID: "q1", Points: 1}},
	}); errors.Cause(err) != shortquestion.ErrNotSubmitted {
		t.Errorf("Grade() error = %v, want %v", err, shortquestion.ErrNotSubmitted)
	}

	att := env.submitted(t)

	tests := []struct {
		name    string
		actor   user.User
		grades  []shortquestion.Grade
		wantErr error
	}{
		{
			name:    "students cannot grade",
			actor:   env.student,
			grades:  []shortquestion.Grade{{QuestionID: "q1", Points: 1}},
			wantErr: core.ErrPermissionDenied,
		},
		{
			name:    "unknown question",
			actor:   env.teacher,
			grades:  []shortquestion.Grade{{QuestionID: "zz", Points: 1}},
			wantErr: shortquestion.ErrUnknownQuestion,
		},
		{
			name:    "points over the question maximum",
			actor:   env.teacher,
			grades:  []shortquestion.Grade{{QuestionID: "q1", Points: 11}},
			wantErr: shortquestion.ErrPointsTooHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Grade(ctx, tt.actor, att.ID, shortquestion.GradeAttempt{Grades: tt.grades})
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("Grade() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_terminalResultsFeedAggregation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	att := env.submitted(t)
	if _, err := env.svc.Grade(ctx, env.teacher, att.ID, shortquestion.GradeAttempt{
		Grades: []shortquestion.Grade{{QuestionID: "q1", Points: 2}, {QuestionID: "q2", Points: 2}},
	}); err != nil {
		t.Fatalf("Grade() error = %v", err)
	}

	// a failed grade (20%) then a passing retake: the latest graded attempt wins
	retake := env.submitted(t)
	if _, err := env.svc.Grade(ctx, env.teacher, retake.ID, shortquestion.GradeAttempt{
		Grades: []shortquestion.Grade{{QuestionID: "q1", Points: 10}, {QuestionID: "q2", Points: 10}},
	}); err != nil {
		t.Fatalf("Grade() error = %v", err)
	}

	results, err := env.repo.QueryTerminalResults(ctx, env.crs.ID, env.student.ID)
	if err != nil {
		t.Fatalf("QueryTerminalResults() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("QueryTerminalResults() returned %v results, want 1", len(results))
	}
	if results[0].SetID != env.set.ID || !results[0].Passed {
		t.Errorf("QueryTerminalResults() = %+v, want latest (passed) outcome for the set", results[0])
	}
}
