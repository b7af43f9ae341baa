package faults

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/sirupsen/logrus"
)

// RetryPolicy retries network faults with linear backoff: the n-th retry
// waits n × Backoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// PolicyFromEnv reads RETRY_MAX_ATTEMPTS (default 3) and RETRY_BACKOFF_MS (default 200).
func PolicyFromEnv() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: config.IntFromEnv("RETRY_MAX_ATTEMPTS", 3),
		Backoff:     time.Duration(config.IntFromEnv("RETRY_BACKOFF_MS", 200)) * time.Millisecond,
	}
}

// Handler is passed to every layer that retries or reports faults.
type Handler struct {
	Logger *logrus.Logger
	Policy RetryPolicy
}

func NewHandler(logger *logrus.Logger, policy RetryPolicy) *Handler {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Handler{Logger: logger, Policy: policy}
}

// Retry runs fn until it succeeds, fails with a non-network fault, or the
// attempts run out. It returns the last error.
func (h *Handler) Retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= h.Policy.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !Retryable(err) || attempt == h.Policy.MaxAttempts {
			return err
		}
		h.Logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).Warn(err.Error())

		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * h.Policy.Backoff):
		}
	}
	return err
}

// Do is Retry for operations that return a value.
func Do[T any](ctx context.Context, h *Handler, op string, fn func() (T, error)) (T, error) {
	var out T
	err := h.Retry(ctx, op, func() error {
		v, err := fn()
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

var messages = map[Kind]string{
	KindNetwork:        "Connection problem, please try again",
	KindAuthentication: "Authentication required",
	KindPermission:     "You do not have permission to do that",
	KindValidation:     "Invalid input",
	KindPersistence:    "Could not save your changes",
	KindUnknown:        "Something went wrong",
}

var statuses = map[Kind]int{
	KindNetwork:        http.StatusServiceUnavailable,
	KindAuthentication: http.StatusUnauthorized,
	KindPermission:     http.StatusForbidden,
	KindValidation:     http.StatusBadRequest,
	KindPersistence:    http.StatusInternalServerError,
	KindUnknown:        http.StatusInternalServerError,
}

// Status maps err to an HTTP status.
func Status(err error) int {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, utils.ErrEmailTaken) {
		return http.StatusConflict
	}
	return statuses[Classify(err)]
}

// Message is the text shown to the user for err.
func Message(err error) string {
	kind := Classify(err)
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return utils.ErrorRecordNotFound.Error()
	case errors.Is(err, utils.ErrInvalidLogin), errors.Is(err, utils.ErrEmailTaken), errors.Is(err, utils.ErrLockBusy),
		errors.Is(err, utils.ErrInvalidInput):
		return err.Error()
	case kind == KindValidation:
		var verr *costing.ValidationError
		if errors.As(err, &verr) {
			return messages[KindValidation]
		}
		return err.Error()
	}
	return messages[kind]
}

// Respond writes {"error", "kind"} with the mapped status. Validation
// failures also carry "errors"; server-side faults are logged.
func (h *Handler) Respond(c *gin.Context, module string, funcName string, err error) {
	kind := Classify(err)
	status := Status(err)
	body := gin.H{
		"error": Message(err),
		"kind":  kind,
	}

	var verr *costing.ValidationError
	var bindErr validator.ValidationErrors
	if errors.As(err, &verr) {
		body["errors"] = verr.Errors
	} else if errors.As(err, &bindErr) {
		body["errors"] = utils.ProcessValidationErrors(bindErr)
	}

	if status >= http.StatusInternalServerError {
		config.LogError(h.Logger, module, funcName, c.FullPath(), nil, err)
	}
	c.AbortWithStatusJSON(status, body)
}
