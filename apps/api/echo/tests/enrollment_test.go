package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
	"github.com/LeahNg97/KOLP-sub001/core/user"
	testutil "github.com/LeahNg97/KOLP-sub001/tests"
)

func getStudentCount(t *testing.T, token, courseID string) int {
	t.Helper()

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+courseID, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET course failed! code = %v", rec.Code)
	}
	var crs course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	return crs.Stats.StudentCount
}

func unmarshalEnrollment(t *testing.T, rec *httptest.ResponseRecorder) enrollment.Enrollment {
	t.Helper()

	var enr enrollment.Enrollment
	if err := json.Unmarshal(rec.Body.Bytes(), &enr); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	return enr
}

func Test_enrollmentApi_lifecycle(t *testing.T) {
	setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, crsRepo, "go101", "Go Basics", teacher.ID, true)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	var enr enrollment.Enrollment

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/nope/enrollments", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		}, rec)
	})

	t.Run("request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enrollments", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusCreated)
		}
		enr = unmarshalEnrollment(t, rec)
		if enr.Status != enrollment.StatusPending {
			t.Errorf("failed! status = %v; want %v", enr.Status, enrollment.StatusPending)
		}
		// counter only moves on approval
		if count := getStudentCount(t, studentToken, crs.ID); count != 0 {
			t.Errorf("failed! student_count = %v; want 0", count)
		}
	})

	t.Run("duplicate request conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enrollments", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "student already has an active enrollment for this course"}),
		}, rec)
	})

	t.Run("students cannot list course enrollments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/enrollments", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("teacher lists course enrollments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/enrollments", teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, enr)}, rec)
	})

	t.Run("students cannot approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/"+enr.ID+"/approve", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/"+enr.ID+"/approve", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		got := unmarshalEnrollment(t, rec)
		if got.Status != enrollment.StatusApproved {
			t.Errorf("failed! status = %v; want %v", got.Status, enrollment.StatusApproved)
		}
		if !got.InstructorApproved {
			t.Error("failed! instructor_approved not set")
		}
		if count := getStudentCount(t, studentToken, crs.ID); count != 1 {
			t.Errorf("failed! student_count = %v; want 1", count)
		}
	})

	t.Run("approve is not repeatable", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/"+enr.ID+"/approve", teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "enrollment is already approved"}),
		}, rec)
		if count := getStudentCount(t, studentToken, crs.ID); count != 1 {
			t.Errorf("failed! student_count = %v; want 1", count)
		}
	})

	t.Run("student lists own enrollments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var enrs []enrollment.Enrollment
		if err := json.Unmarshal(rec.Body.Bytes(), &enrs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(enrs) != 1 || enrs[0].ID != enr.ID {
			t.Errorf("failed! enrollments = %v; want [%v]", enrs, enr.ID)
		}
	})

	t.Run("completion requires full progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/completions/"+student.ID, teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, httpErr{Error: "enrollment is not eligible for completion"}),
		}, rec)
	})

	t.Run("cancel", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/"+enr.ID+"/cancel", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		got := unmarshalEnrollment(t, rec)
		if got.Status != enrollment.StatusCancelled {
			t.Errorf("failed! status = %v; want %v", got.Status, enrollment.StatusCancelled)
		}
		if count := getStudentCount(t, studentToken, crs.ID); count != 0 {
			t.Errorf("failed! student_count = %v; want 0", count)
		}
	})

	t.Run("re-enroll after cancel", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enrollments", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusCreated)
		}
		fresh := unmarshalEnrollment(t, rec)
		if fresh.ID == enr.ID {
			t.Error("failed! re-enrollment must create a new record")
		}
		if fresh.Status != enrollment.StatusPending {
			t.Errorf("failed! status = %v; want %v", fresh.Status, enrollment.StatusPending)
		}
	})
}

func Test_enrollmentApi_rejectAndDestroy(t *testing.T) {
	setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other1", "other@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, crsRepo, "go101", "Go Basics", teacher.ID, true)

	pending := testutil.CreateEnrollment(t, enrRepo, crs.ID, student.ID, enrollment.StatusPending)
	approved := testutil.CreateEnrollment(t, enrRepo, crs.ID, other.ID, enrollment.StatusApproved)

	teacherToken := getToken(t, teacher)

	t.Run("reject pending", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/"+pending.ID+"/reject", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/enrollments/"+pending.ID, teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "enrollment not found"}),
		}, rec)
	})

	t.Run("destroy requires admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/enrollments/"+approved.ID, teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("destroy reverses the counter", func(t *testing.T) {
		if count := getStudentCount(t, teacherToken, crs.ID); count != 1 {
			t.Fatalf("failed! student_count = %v; want 1", count)
		}

		req, rec := newAuthRequest(http.MethodDelete, "/v1/enrollments/"+approved.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		if count := getStudentCount(t, teacherToken, crs.ID); count != 0 {
			t.Errorf("failed! student_count = %v; want 0", count)
		}
	})
}
