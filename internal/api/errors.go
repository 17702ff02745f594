package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bistro/server/internal/services"
)

const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeConflict          = "CONFLICT"
	CodeInternalError     = "INTERNAL_ERROR"
)

// AppError is the JSON error body returned by every handler.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// FromError maps ledger error kinds onto HTTP statuses. Anything that is not
// a ledger error is a 500 and its text is not sent to the client.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		return &AppError{Code: CodeNotFound, Message: err.Error(), HTTPStatus: http.StatusNotFound, Err: err}
	case errors.Is(err, services.ErrInvalidInput):
		return &AppError{Code: CodeValidationError, Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	case errors.Is(err, services.ErrInsufficientStock):
		return &AppError{Code: CodeInsufficientStock, Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, services.ErrInconsistentState):
		return &AppError{Code: CodeConflict, Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	}
	return &AppError{Code: CodeInternalError, Message: "internal error", HTTPStatus: http.StatusInternalServerError, Err: err}
}

func respondError(c *gin.Context, err error) {
	appErr := FromError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

// bindJSON binds the request body and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, ErrValidation("invalid request body: "+err.Error()))
		return false
	}
	return true
}
