package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
	"github.com/LeahNg97/KOLP-sub001/core/quiz"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  &isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	code, title, teacherID string,
	published bool,
) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Code:      code,
		Title:     title,
		TeacherID: teacherID,
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLesson(
	t *testing.T,
	repo lesson.Repository,
	courseID, title string,
	position int,
) lesson.Lesson {
	t.Helper()

	now := time.Now().UTC()
	lsn, err := repo.CreateLesson(context.Background(), lesson.Lesson{
		CourseID:  courseID,
		Title:     title,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lsn
}

func CreateQuiz(
	t *testing.T,
	repo quiz.Repository,
	courseID, title string,
	questions []quiz.Question,
) quiz.Quiz {
	t.Helper()

	now := time.Now().UTC()
	qz, err := repo.CreateQuiz(context.Background(), quiz.Quiz{
		CourseID:    courseID,
		Title:       title,
		PassPct:     quiz.DefaultPassPct,
		MaxAttempts: quiz.DefaultMaxAttempts,
		Questions:   questions,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return qz
}

func CreateSet(
	t *testing.T,
	repo shortquestion.Repository,
	courseID, title string,
	questions []shortquestion.Question,
) shortquestion.Set {
	t.Helper()

	now := time.Now().UTC()
	set, err := repo.CreateSet(context.Background(), shortquestion.Set{
		CourseID:  courseID,
		Title:     title,
		PassPct:   shortquestion.DefaultPassPct,
		Questions: questions,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSet() failed: %v", err)
	}
	return set
}

func CreateEnrollment(
	t *testing.T,
	repo enrollment.Repository,
	courseID, studentID, status string,
) enrollment.Enrollment {
	t.Helper()

	now := time.Now().UTC()
	enr := enrollment.Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		Status:     enrollment.StatusPending,
		EnrolledAt: now,
	}
	enr, err := repo.CreateEnrollment(context.Background(), enr)
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	if status == enrollment.StatusApproved {
		enr, err = repo.ApproveEnrollment(context.Background(), enr.ID, now)
		if err != nil {
			t.Fatalf("CreateEnrollment() failed: %v", err)
		}
	}
	return enr
}
