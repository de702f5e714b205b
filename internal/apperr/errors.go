// Package apperr holds the failure taxonomy shared by every service:
// validation, duplicate, referenced-on-delete, not-found and generic
// backend failures.
package apperr

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang/glog"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrDuplicate    = errors.New("duplicate")
	ErrReferenced   = errors.New("referenced by other records")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ValidationError is an input problem detected before touching the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// domainError keeps a sentinel kind while carrying a user-facing message.
type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.kind }

// Duplicate returns an ErrDuplicate carrying a domain message.
func Duplicate(msg string) error { return &domainError{kind: ErrDuplicate, msg: msg} }

// NotFound returns an ErrNotFound carrying a domain message.
func NotFound(msg string) error { return &domainError{kind: ErrNotFound, msg: msg} }

// Forbidden returns an ErrForbidden carrying a domain message.
func Forbidden(msg string) error { return &domainError{kind: ErrForbidden, msg: msg} }

// Classify maps a raw store error onto the taxonomy. Unclassified errors
// are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domainError{kind: ErrNotFound, msg: "record not found"}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domainError{kind: ErrDuplicate, msg: err.Error()}
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &domainError{kind: ErrReferenced, msg: err.Error()}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &domainError{kind: ErrDuplicate, msg: pgErr.Message}
		case pgForeignKeyViolation:
			return &domainError{kind: ErrReferenced, msg: pgErr.Message}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate"):
		return &domainError{kind: ErrDuplicate, msg: err.Error()}
	case strings.Contains(msg, "foreign key"):
		return &domainError{kind: ErrReferenced, msg: err.Error()}
	}
	return err
}

func IsDuplicate(err error) bool  { return errors.Is(Classify(err), ErrDuplicate) }
func IsReferenced(err error) bool { return errors.Is(Classify(err), ErrReferenced) }
func IsNotFound(err error) bool   { return errors.Is(Classify(err), ErrNotFound) }

// Status maps an error onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrReferenced):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Write renders err as a JSON body. Unclassified failures get a generic
// message; the detail goes to the log.
func Write(w http.ResponseWriter, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		glog.Errorf("request failed: %v", err)
		msg = "operation failed"
	}
	WriteJSON(w, status, map[string]string{"error": msg})
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("error encoding response: %v", err)
	}
}
