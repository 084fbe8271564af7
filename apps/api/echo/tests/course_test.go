package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/user"
	testutil "github.com/LeahNg97/KOLP-sub001/tests"
)

func Test_courseApi_create(t *testing.T) {
	setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	testutil.CreateCourse(t, crsRepo, "go101", "Go Basics", teacher.ID, true)

	teacherToken := getToken(t, teacher)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "students cannot create courses", token: getToken(t, student), wantCode: http.StatusForbidden,
			body:     marchallObj(t, course.NewCourse{Code: "py101", Title: "Python Basics"}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.NewCourse{}),
			wantData: marchallObj(t, map[string]string{"code": "this field is required", "title": "this field is required"}),
		},
		{
			name: "duplicate code", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.NewCourse{Code: "go101", Title: "Go Again"}),
			wantData: marchallObj(t, map[string]string{"code": "a course with this code already exists"}),
		},
		{
			name: "course created", token: teacherToken, wantCode: http.StatusCreated,
			body: marchallObj(t, course.NewCourse{Code: "py101", Title: "Python Basics", Description: "An intro."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if crs.TeacherID != teacher.ID {
					t.Errorf("failed! teacher_id = %v; want %v", crs.TeacherID, teacher.ID)
				}
				if crs.Published {
					t.Error("failed! new courses must start unpublished")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_publish(t *testing.T) {
	setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival1", "rival@test.cd", "", []string{user.RoleTeacher}, true)
	crs := testutil.CreateCourse(t, crsRepo, "go101", "Go Basics", teacher.ID, false)

	tests := []httpTest{
		{name: "unknown course", path: "/v1/courses/nope/publish", token: getToken(t, teacher), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
		{
			name: "only the owner may publish", path: "/v1/courses/" + crs.ID + "/publish", token: getToken(t, rival),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "published", path: "/v1/courses/" + crs.ID + "/publish", token: getToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if !respData.Published {
					t.Error("failed! course not published")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_retrieveAndDestroy(t *testing.T) {
	setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, crsRepo, "go101", "Go Basics", teacher.ID, true)

	tests := []httpTest{
		{name: "retrieve", method: http.MethodGet, path: "/v1/courses/" + crs.ID, token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, crs)},
		{
			name: "students cannot delete", method: http.MethodDelete, path: "/v1/courses/" + crs.ID, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "admin deletes", method: http.MethodDelete, path: "/v1/courses/" + crs.ID, token: getToken(t, admin), wantCode: http.StatusNoContent},
		{
			name: "gone after delete", method: http.MethodGet, path: "/v1/courses/" + crs.ID, token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
