// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/johnmartinello/gscript/internal/errors"
)

// APIResponse is the standard response envelope
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError is the standard error payload
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseHelper builds the standard response shapes
type ResponseHelper struct{}

// NewResponseHelper creates a response helper
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success writes a 200 with data
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(http.StatusOK, response)
}

// Created writes a 201 with data
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// NoResult writes a 200 for a user-cancelled operation: not an error, no
// data
func (rh *ResponseHelper) NoResult(c *gin.Context, message string) {
	c.JSON(http.StatusOK, &APIResponse{
		Success:   true,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Error maps an application error to an HTTP status and writes it
func (rh *ResponseHelper) Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "PROCESSING_ERROR"
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrorTypeValidation, apperrors.ErrorTypeMalformed:
			status = http.StatusBadRequest
		case apperrors.ErrorTypeConflict:
			status = http.StatusConflict
		}
	}

	c.JSON(status, &APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}

// BadRequest writes a 400 for malformed request bodies
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, &APIResponse{
		Success:   false,
		Error:     &APIError{Code: "BAD_REQUEST", Message: message},
		Timestamp: time.Now(),
	})
}
