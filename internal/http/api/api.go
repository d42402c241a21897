package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// APIError is what handlers return instead of writing an error themselves.
// ErrCode defaults to the code of the status.
type APIError struct {
	Code    int
	ErrCode string
	Message string
	Details string
}

func (e *APIError) Error() string { return e.Message }

// details are only sent outside production
var exposeDetails = true

func SetExposeDetails(expose bool) { exposeDetails = expose }

type HandlerFuncWithAuth func(ctx *gin.Context, user *model.User) (any, *APIError)
type HandlerFunc func(ctx *gin.Context) (any, *APIError)

// Response lets a handler pick a status other than 200.
type Response struct {
	Status int
	Body   any
}

func Created(body any) Response {
	return Response{Status: http.StatusCreated, Body: body}
}

func BadRequest(msg string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: msg}
}

func Unauthorized(msg string) *APIError {
	return &APIError{Code: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *APIError {
	return &APIError{Code: http.StatusForbidden, Message: msg}
}

func NotFound(what string) *APIError {
	return &APIError{Code: http.StatusNotFound, Message: what + " not found"}
}

func Conflict(msg string) *APIError {
	return &APIError{Code: http.StatusConflict, Message: msg}
}

func Unavailable(msg string) *APIError {
	return &APIError{Code: http.StatusServiceUnavailable, Message: msg}
}

func Internal(err error) *APIError {
	e := &APIError{Code: http.StatusInternalServerError, Message: "internal server error"}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// FromStore maps a store error onto the response for the named entity.
func FromStore(err error, what string) *APIError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return NotFound(what)
	case errors.Is(err, db.ErrConflict):
		return &APIError{Code: http.StatusConflict, Message: what + " conflicts with existing data", Details: err.Error()}
	case errors.Is(err, db.ErrInvalid):
		return &APIError{Code: http.StatusBadRequest, Message: "invalid " + what, Details: err.Error()}
	}
	return Internal(err)
}

func ResolveEndpointWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := middleware.GetCurrentUser(ctx)
		if !ok {
			WriteError(ctx, Unauthorized("unauthorized"))
			return
		}

		result, apiErr := h(ctx, user)
		respond(ctx, result, apiErr)
	}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		respond(ctx, result, apiErr)
	}
}

func respond(ctx *gin.Context, result any, apiErr *APIError) {
	if apiErr != nil {
		WriteError(ctx, apiErr)
		return
	}
	// handler already wrote (e.g. 304)
	if ctx.Writer.Written() {
		return
	}
	if r, ok := result.(Response); ok {
		ctx.JSON(r.Status, r.Body)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// WriteError sends the shared error body; 5xx responses are logged.
func WriteError(ctx *gin.Context, e *APIError) {
	if e.Code >= http.StatusInternalServerError {
		log.Error().Str("path", ctx.Request.URL.Path).Int("status", e.Code).
			Str("details", e.Details).Msg(e.Message)
	}
	details := ""
	if exposeDetails {
		details = e.Details
	}
	middleware.AbortWithError(ctx, e.Code, e.ErrCode, e.Message, details)
}
