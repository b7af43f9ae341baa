// Package faults classifies errors into a small closed set of kinds and
// turns them into HTTP responses.
package faults

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/bsm/redislock"
	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthentication Kind = "authentication"
	KindPermission     Kind = "permission"
	KindValidation     Kind = "validation"
	KindPersistence    Kind = "persistence"
	KindUnknown        Kind = "unknown"
)

// Error is an error already assigned a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var persistenceErrors = []error{
	gorm.ErrRecordNotFound,
	gorm.ErrInvalidTransaction,
	gorm.ErrMissingWhereClause,
	gorm.ErrInvalidData,
	gorm.ErrDuplicatedKey,
	gorm.ErrForeignKeyViolated,
	utils.ErrorRecordNotFound,
}

// Classify maps err to its Kind. nil maps to "".
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	var verr *costing.ValidationError
	var bindErr validator.ValidationErrors
	if errors.As(err, &verr) || errors.As(err, &bindErr) ||
		errors.Is(err, utils.ErrEmailTaken) || errors.Is(err, utils.ErrInvalidInput) {
		return KindValidation
	}

	var jwtErr *jwt.ValidationError
	if errors.Is(err, utils.ErrUnauthorized) || errors.Is(err, utils.ErrInvalidLogin) ||
		errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.As(err, &jwtErr) {
		return KindAuthentication
	}
	if errors.Is(err, utils.ErrForbidden) {
		return KindPermission
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045:
			return KindAuthentication
		case 1142, 1143:
			return KindPermission
		default:
			return KindPersistence
		}
	}

	if isNetwork(err) {
		return KindNetwork
	}

	for _, target := range persistenceErrors {
		if errors.Is(err, target) {
			return KindPersistence
		}
	}
	return KindUnknown
}

func isNetwork(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, utils.ErrLockBusy) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return Classify(err) == KindNetwork
}
