package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/course"
	"github.com/LeahNg97/KOLP-sub001/core/enrollment"
	"github.com/LeahNg97/KOLP-sub001/core/lesson"
	"github.com/LeahNg97/KOLP-sub001/core/quiz"
	"github.com/LeahNg97/KOLP-sub001/core/shortquestion"
	"github.com/LeahNg97/KOLP-sub001/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainHTTPStatus maps domain sentinels to HTTP statuses; the zero return
// means the error is not a known domain error.
func domainHTTPStatus(err error) int {
	switch errors.Cause(err) {
	case user.ErrNotFound,
		course.ErrNotFound,
		lesson.ErrNotFound,
		quiz.ErrNotFound,
		shortquestion.ErrNotFound,
		shortquestion.ErrAttemptNotFound,
		enrollment.ErrNotFound:
		return http.StatusNotFound

	case core.ErrPermissionDenied,
		lesson.ErrNotEnrolled,
		quiz.ErrNotEnrolled,
		shortquestion.ErrNotEnrolled:
		return http.StatusForbidden

	case enrollment.ErrAlreadyEnrolled,
		enrollment.ErrAlreadyApproved,
		quiz.ErrQuizExists,
		core.ErrTxConflict:
		return http.StatusConflict

	case enrollment.ErrNotEligible,
		quiz.ErrMaxAttempts,
		shortquestion.ErrNotSubmitted,
		shortquestion.ErrAlreadyGraded,
		shortquestion.ErrAttemptClosed,
		shortquestion.ErrUnknownQuestion,
		shortquestion.ErrPointsTooHigh:
		return http.StatusUnprocessableEntity
	}
	return 0
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if status := domainHTTPStatus(err); status > 0 {
				code = status
				message = errors.Cause(err).Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
