package lesson_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
	"github.com/LeahNg97/KOLP-sub001/core/progress"
	"github.com/LeahNg97/KOLP-sub001/core/user"
	emailsvc "github.com/LeahNg97/KOLP-sub001/services/email"
	"github.com/LeahNg97/KOLP-sub001/storage/database/inmem"
	testutil "github.com/LeahNg97/KOLP-sub001/tests"
)

// setup wires the real aggregator and ledger so completion events are checked
// all the way through to the persisted enrollment progress.
type testEnv struct {
	lsnRepo lesson.Repository
	enrRepo enrollment.Repository
	svc     *lesson.Service
	enrSvc  *enrollment.Service

	teacher user.User
	student user.User
	crs     course.Course
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	store := inmem.NewStore()
	usrRepo := inmem.NewUserRepository(store)
	crsRepo := inmem.NewCourseRepository(store)
	qzRepo := inmem.NewQuizRepository(store)
	sqRepo := inmem.NewShortQuestionRepository(store)

	env := &testEnv{
		lsnRepo: inmem.NewLessonRepository(store),
		enrRepo: inmem.NewEnrollmentRepository(store),
	}
	env.enrSvc = enrollment.NewService(
		env.enrRepo,
		crsRepo,
		usrRepo,
		emailsvc.NewConsoleServiceMock(),
		core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)),
	)
	aggregator := progress.NewService(env.lsnRepo, qzRepo, sqRepo, env.enrSvc)
	env.svc = lesson.NewService(env.lsnRepo, crsRepo, env.enrSvc, aggregator)

	env.teacher = testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	env.student = testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	env.crs = testutil.CreateCourse(t, crsRepo, "go101", "Go 101", env.teacher.ID, true)
	return env
}

func (env *testEnv) enroll(t *testing.T) enrollment.Enrollment {
	t.Helper()
	return testutil.CreateEnrollment(t, env.enrRepo, env.crs.ID, env.student.ID, enrollment.StatusApproved)
}

func (env *testEnv) progressOf(t *testing.T, enrID string) int {
	t.Helper()
	enr, err := env.enrRepo.GetEnrollmentByID(context.Background(), enrID)
	if err != nil {
		t.Fatalf("GetEnrollmentByID() failed: %v", err)
	}
	return enr.Progress
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	nl := lesson.NewLesson{Title: "Intro", Position: 1}

	if _, err := env.svc.Create(ctx, env.student, env.crs.ID, nl); errors.Cause(err) != core.ErrPermissionDenied {
		t.Errorf("Create() error = %v, want %v", err, core.ErrPermissionDenied)
	}

	les, err := env.svc.Create(ctx, env.teacher, env.crs.ID, nl)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if les.ID == "" || les.CourseID != env.crs.ID {
		t.Errorf("Create() = %+v, want persisted lesson", les)
	}
}

func TestService_MarkCompleted(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	enr := env.enroll(t)

	l1 := testutil.CreateLesson(t, env.lsnRepo, env.crs.ID, "Intro", 1)
	l2 := testutil.CreateLesson(t, env.lsnRepo, env.crs.ID, "Basics", 2)

	sl, err := env.svc.MarkCompleted(ctx, env.student.ID, l1.ID, lesson.CompleteLesson{TimeSpentSec: 120})
	if err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if !sl.Completed || sl.CompletedAt.IsZero() || sl.TimeSpentSec != 120 {
		t.Errorf("MarkCompleted() = %+v, want completed record", sl)
	}
	// 1 of 2 lessons: 30 of the 60 lesson points
	if got := env.progressOf(t, enr.ID); got != 30 {
		t.Errorf("progress = %v, want 30", got)
	}

	// completing the same lesson again changes nothing
	if _, err = env.svc.MarkCompleted(ctx, env.student.ID, l1.ID, lesson.CompleteLesson{TimeSpentSec: 60}); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if got := env.progressOf(t, enr.ID); got != 30 {
		t.Errorf("progress = %v, want 30 after repeat completion", got)
	}

	if _, err = env.svc.MarkCompleted(ctx, env.student.ID, l2.ID, lesson.CompleteLesson{}); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if got := env.progressOf(t, enr.ID); got != 60 {
		t.Errorf("progress = %v, want 60 with all lessons done", got)
	}
}

func TestService_MarkIncomplete(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	enr := env.enroll(t)

	l1 := testutil.CreateLesson(t, env.lsnRepo, env.crs.ID, "Intro", 1)

	if _, err := env.svc.MarkCompleted(ctx, env.student.ID, l1.ID, lesson.CompleteLesson{}); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if got := env.progressOf(t, enr.ID); got != 60 {
		t.Errorf("progress = %v, want 60", got)
	}

	sl, err := env.svc.MarkIncomplete(ctx, env.student.ID, l1.ID)
	if err != nil {
		t.Fatalf("MarkIncomplete() error = %v", err)
	}
	if sl.Completed || !sl.CompletedAt.IsZero() {
		t.Errorf("MarkIncomplete() = %+v, want reverted record", sl)
	}
	if got := env.progressOf(t, enr.ID); got != 0 {
		t.Errorf("progress = %v, want 0 after revert", got)
	}
}

func TestService_MarkCompleted_notEnrolled(t *testing.T) {
	env := setup(t)
	l1 := testutil.CreateLesson(t, env.lsnRepo, env.crs.ID, "Intro", 1)

	_, err := env.svc.MarkCompleted(context.Background(), env.student.ID, l1.ID, lesson.CompleteLesson{})
	if errors.Cause(err) != lesson.ErrNotEnrolled {
		t.Errorf("MarkCompleted() error = %v, want %v", err, lesson.ErrNotEnrolled)
	}
}

func TestService_QueryByCourse_ordersByPosition(t *testing.T) {
	env := setup(t)

	testutil.CreateLesson(t, env.lsnRepo, env.crs.ID, "Closing", 3)
	testutil.CreateLesson(t, env.lsnRepo, env.crs.ID, "Intro", 1)
	testutil.CreateLesson(t, env.lsnRepo, env.crs.ID, "Basics", 2)

	lessons, err := env.svc.QueryByCourse(context.Background(), env.crs.ID)
	if err != nil {
		t.Fatalf("QueryByCourse() error = %v", err)
	}
	want := []string{"Intro", "Basics", "Closing"}
	if len(lessons) != len(want) {
		t.Fatalf("QueryByCourse() returned %v lessons, want %v", len(lessons), len(want))
	}
	for i, title := range want {
		if lessons[i].Title != title {
			t.Errorf("lessons[%d].Title = %v, want %v", i, lessons[i].Title, title)
		}
	}
}

func TestService_Delete_decrementsLessonTotal(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	les, err := env.svc.Create(ctx, env.teacher, env.crs.ID, lesson.NewLesson{Title: "Intro"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err := env.lsnRepo.CountCourseLessons(ctx, env.crs.ID)
	if err != nil {
		t.Fatalf("CountCourseLessons() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("CountCourseLessons() = %v, want 1", count)
	}

	if err = env.svc.Delete(ctx, env.teacher, les.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if count, _ = env.lsnRepo.CountCourseLessons(ctx, env.crs.ID); count != 0 {
		t.Errorf("CountCourseLessons() = %v, want 0", count)
	}
}
