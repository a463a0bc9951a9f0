package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func badRequest(c *gin.Context, message, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: message, Details: details})
}

func internalError(c *gin.Context, message, details string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: message, Details: details})
}

// formatValidationError turns validator failures into "field: rule" pairs.
func formatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Namespace() + ": " + e.Tag()
		if e.Param() != "" {
			msg += "=" + e.Param()
		}
		messages = append(messages, msg)
	}
	return strings.Join(messages, ", ")
}

// bindAndValidate decodes the JSON body into obj. It writes a 400 and
// returns false when the body is malformed or fails validation.
func bindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			badRequest(c, "Validation failed", formatValidationError(err))
		} else {
			badRequest(c, "Invalid request payload", err.Error())
		}
		return false
	}
	return true
}
