package main

import (
	"context"
	"fmt"
	"log"
	"os"

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
	logsvc "github.com/LeahNg97/KOLP-sub001/services/logger"
	"github.com/LeahNg97/KOLP-sub001/storage/database"
	sqlxrepos "github.com/LeahNg97/KOLP-sub001/storage/database/sqlx"
)

func main() {
	conf := core.Conf

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	if err = database.Migrate(db.DB); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	lsnRepo := sqlxrepos.NewLessonRepository(db)
	qzRepo := sqlxrepos.NewQuizRepository(db)
	sqRepo := sqlxrepos.NewShortQuestionRepository(db)
	enrRepo := sqlxrepos.NewEnrollmentRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc)
	crsSvc := course.NewService(crsRepo)
	enrSvc := enrollment.NewService(enrRepo, crsRepo, usrRepo, mailSvc, logger)
	aggregator := progress.NewService(lsnRepo, qzRepo, sqRepo, enrSvc)
	lsnSvc := lesson.NewService(lsnRepo, crsRepo, enrSvc, aggregator)
	qzSvc := quiz.NewService(qzRepo, crsRepo, enrSvc, aggregator)
	sqSvc := shortquestion.NewService(sqRepo, crsRepo, enrSvc, aggregator)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.RegisterCustomValidators(validate, translator)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Addr:             conf.Server.Address(),
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

	go server.Start()

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
