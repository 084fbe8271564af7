package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
	"github.com/LeahNg97/KOLP-sub001/core/quiz"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
	"github.com/LeahNg97/KOLP-sub001/core/user"
	testutil "github.com/LeahNg97/KOLP-sub001/tests"
)

// Test_api_completionFlow walks a student through an entire course: enroll,
// complete the lesson, pass the quiz, get the short-answer attempt graded and
// finally have the completion approved by the teacher.
func Test_api_completionFlow(t *testing.T) {
	setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, crsRepo, "go101", "Go Basics", teacher.ID, true)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	getProgress := func(t *testing.T, enrID string) int {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments/"+enrID, studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET enrollment failed! code = %v", rec.Code)
		}
		return unmarshalEnrollment(t, rec).Progress
	}

	// teacher sets up the course content
	var lsn lesson.Lesson
	{
		body := marchallObj(t, lesson.NewLesson{Title: "Intro", Position: 1, DurationMin: 10})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/lessons", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create lesson failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &lsn); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
	}

	var qz quiz.Quiz
	{
		body := marchallObj(t, quiz.NewQuiz{
			Title:     "Checkpoint",
			Questions: []quiz.NewQuestion{{Prompt: "2 + 2 ?", Choices: []string{"3", "4"}, Answer: 1}},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/quiz", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create quiz failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &qz); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(qz.Questions) != 1 || qz.Questions[0].ID == "" {
			t.Fatalf("quiz questions missing IDs: %v", qz.Questions)
		}
	}

	var set shortquestion.Set
	{
		body := marchallObj(t, shortquestion.NewSet{
			Title:     "Essay",
			Questions: []shortquestion.NewQuestion{{Prompt: "Explain interfaces.", MaxPoints: 10}},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/short-question-sets", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create set failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
	}

	// work is gated until the enrollment is approved
	{
		body := marchallObj(t, lesson.CompleteLesson{TimeSpentSec: 300})
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/"+lsn.ID+"/complete", studentToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "student is not enrolled in this course"}),
		}, rec)
	}

	// enroll and approve
	var enr enrollment.Enrollment
	{
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enrollments", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("enroll failed! code = %v", rec.Code)
		}
		enr = unmarshalEnrollment(t, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/enrollments/"+enr.ID+"/approve", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("approve failed! code = %v", rec.Code)
		}
	}

	// lesson done: 60%
	{
		body := marchallObj(t, lesson.CompleteLesson{TimeSpentSec: 300})
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/"+lsn.ID+"/complete", studentToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("complete lesson failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		if got := getProgress(t, enr.ID); got != 60 {
			t.Errorf("failed! progress = %v; want 60", got)
		}
	}

	// quiz passed: 80%
	{
		body := marchallObj(t, quiz.SubmitQuiz{
			Answers: []quiz.SubmitAnswer{{QuestionID: qz.Questions[0].ID, Selected: 1}},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+qz.ID+"/submit", studentToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("submit quiz failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var att quiz.Attempt
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !att.Passed || att.Percentage != 100 {
			t.Errorf("failed! attempt = %+v; want passed at 100%%", att)
		}
		if got := getProgress(t, enr.ID); got != 80 {
			t.Errorf("failed! progress = %v; want 80", got)
		}
	}

	// short answers graded: 100%
	{
		req, rec := newAuthRequest(http.MethodPost, "/v1/short-question-sets/"+set.ID+"/attempts", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("start attempt failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var att shortquestion.Attempt
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}

		body := marchallObj(t, shortquestion.SubmitAttempt{
			Answers: []shortquestion.SubmitAnswer{{QuestionID: set.Questions[0].ID, Text: "They describe behavior."}},
		})
		req, rec = newAuthRequest(http.MethodPost, "/v1/short-question-attempts/"+att.ID+"/submit", studentToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("submit attempt failed! code = %v; body %v", rec.Code, rec.Body.String())
		}

		// grading is the teacher's call
		body = marchallObj(t, shortquestion.GradeAttempt{
			Grades: []shortquestion.Grade{{QuestionID: set.Questions[0].ID, Points: 10}},
		})
		req, rec = newAuthRequest(http.MethodPost, "/v1/short-question-attempts/"+att.ID+"/grade", studentToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/short-question-attempts/"+att.ID+"/grade", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("grade attempt failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var graded shortquestion.Attempt
		if err := json.Unmarshal(rec.Body.Bytes(), &graded); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !graded.Passed || graded.Status != shortquestion.StatusCompleted {
			t.Errorf("failed! attempt = %+v; want passed and completed", graded)
		}
		if got := getProgress(t, enr.ID); got != 100 {
			t.Errorf("failed! progress = %v; want 100", got)
		}
	}

	// completion approved
	{
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/completions/"+student.ID, teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("approve completion failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		got := unmarshalEnrollment(t, rec)
		if !got.Completed {
			t.Error("failed! enrollment not completed")
		}
		if got.GraduatedAt.IsZero() {
			t.Error("failed! graduated_at not set")
		}
	}
}
