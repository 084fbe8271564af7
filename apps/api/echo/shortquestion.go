package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

type shortQuestionApi struct {
	svc      *shortquestion.Service
	userSvc  *user.Service
	validate *validator.Validate
}

func registerShortQuestionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *shortquestion.Service, userSvc *user.Service, validate *validator.Validate) {
	api := shortQuestionApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	cg := g.Group("/courses/:id/short-question-sets", jwt)
	cg.POST("", api.createSet)
	cg.GET("", api.querySets)

	sg := g.Group("/short-question-sets/:id", jwt)
	sg.GET("", api.retrieveSet)
	sg.DELETE("", api.destroySet)
	sg.POST("/attempts", api.start)
	sg.GET("/attempts", api.queryAttempts)

	ag := g.Group("/short-question-attempts/:id", jwt)
	ag.GET("", api.retrieveAttempt)
	ag.POST("/submit", api.submit)
	ag.POST("/abandon", api.abandon)
	ag.POST("/grade", api.grade)
}

func (api *shortQuestionApi) createSet(ctx echo.Context) error {
	var data shortquestion.NewSet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	set, err := api.svc.CreateSet(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, set)
}

func (api *shortQuestionApi) querySets(ctx echo.Context) error {
	sets, err := api.svc.QueryByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying short-question sets")
	}
	if sets == nil {
		sets = []shortquestion.Set{}
	}
	return ctx.JSON(http.StatusOK, sets)
}

func (api *shortQuestionApi) retrieveSet(ctx echo.Context) error {
	set, err := api.svc.GetSetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, set)
}

func (api *shortQuestionApi) destroySet(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.DeleteSet(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *shortQuestionApi) start(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Start(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *shortQuestionApi) queryAttempts(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	attempts, err := api.svc.QueryStudentAttempts(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID)
	if err != nil {
		return err
	}
	if attempts == nil {
		attempts = []shortquestion.Attempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *shortQuestionApi) retrieveAttempt(ctx echo.Context) error {
	att, err := api.svc.GetAttemptByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *shortQuestionApi) submit(ctx echo.Context) error {
	var data shortquestion.SubmitAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAttempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Submit(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *shortQuestionApi) abandon(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Abandon(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *shortQuestionApi) grade(ctx echo.Context) error {
	var data shortquestion.GradeAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeAttempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Grade(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}
