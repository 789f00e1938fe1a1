package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/middleware"
)

// statusFor maps service errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var validation *domain.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, domain.ErrValidation
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, domain.ErrInvalidInput
	case errors.Is(err, domain.ErrInvalidScreening),
		errors.Is(err, domain.ErrInvalidPatientID),
		errors.Is(err, domain.ErrInvalidModality),
		errors.Is(err, domain.ErrInvalidDecision),
		errors.Is(err, domain.ErrBatchTooLarge):
		return http.StatusBadRequest, domain.ErrInvalidInput
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFoundCode
	case errors.Is(err, domain.ErrScreeningLocked):
		return http.StatusConflict, domain.ErrConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, domain.ErrInternalServer
	default:
		return http.StatusInternalServerError, domain.ErrInternalServer
	}
}

// apiError converts err to the response body. Internal failures keep their detail out of the
// response.
func apiError(err error, requestID string) (int, *domain.APIError) {
	status, code := statusFor(err)

	message := err.Error()
	details := ""
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		message = validation.Message
		details = validation.Field
	}
	if status >= http.StatusInternalServerError {
		message = "Internal server error"
	}
	return status, domain.NewAPIError(code, message, details, requestID)
}

func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)
	status, body := apiError(err, requestID)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"correlation_id": requestID,
			"path":           c.FullPath(),
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrInvalidInput, message, "", c.GetString(middleware.CorrelationIDKey),
	))
}
