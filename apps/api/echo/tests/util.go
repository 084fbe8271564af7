package tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/LeahNg97/KOLP-sub001/apps/api/echo"
	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
	"github.com/LeahNg97/KOLP-sub001/core/progress"
	"github.com/LeahNg97/KOLP-sub001/core/quiz"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
	"github.com/LeahNg97/KOLP-sub001/core/user"
	emailsvc "github.com/LeahNg97/KOLP-sub001/services/email"
	"github.com/LeahNg97/KOLP-sub001/storage/database/inmem"
)

var (
	app *echoapi.Server

	usrRepo user.Repository
	crsRepo course.Repository
	lsnRepo lesson.Repository
	qzRepo  quiz.Repository
	sqRepo  shortquestion.Repository
	enrRepo enrollment.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// setup wires a fresh in-memory store behind a full Server for each test.
func setup(t *testing.T) {
	t.Helper()

	store := inmem.NewStore()
	usrRepo = inmem.NewUserRepository(store)
	crsRepo = inmem.NewCourseRepository(store)
	lsnRepo = inmem.NewLessonRepository(store)
	qzRepo = inmem.NewQuizRepository(store)
	sqRepo = inmem.NewShortQuestionRepository(store)
	enrRepo = inmem.NewEnrollmentRepository(store)

	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleServiceMock()

	usrSvc := user.NewService(usrRepo, mailSvc)
	crsSvc := course.NewService(crsRepo)
	enrSvc := enrollment.NewService(enrRepo, crsRepo, usrRepo, mailSvc, logger)
	aggregator := progress.NewService(lsnRepo, qzRepo, sqRepo, enrSvc)
	lsnSvc := lesson.NewService(lsnRepo, crsRepo, enrSvc, aggregator)
	qzSvc := quiz.NewService(qzRepo, crsRepo, enrSvc, aggregator)
	sqSvc := shortquestion.NewService(sqRepo, crsRepo, enrSvc, aggregator)

	validate, translator := core.NewValidator()
	user.RegisterCustomValidators(validate, translator)

	app = echoapi.NewServer(
		echoapi.ServerDeps{
			DisableReqLogs:   true,
			Logger:           logger,
			Validate:         validate,
			Translator:       translator,
			UserSvc:          usrSvc,
			CourseSvc:        crsSvc,
			LessonSvc:        lsnSvc,
			QuizSvc:          qzSvc,
			ShortQuestionSvc: sqSvc,
			EnrollmentSvc:    enrSvc,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := echoapi.GetUserClaims(usr)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
