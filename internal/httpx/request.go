// Package httpx holds request helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"course-portal/internal/apperr"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a JSON body into v. A malformed body is a validation
// failure.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("", "invalid request body")
	}
	return nil
}

// UUIDVar parses a mux path variable.
func UUIDVar(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a valid id")
	}
	return id, nil
}

// OptionalUUID parses a query parameter; an empty value yields nil.
func OptionalUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Invalid(name, "must be a valid id")
	}
	return &id, nil
}

// IntQuery returns def when the parameter is missing or not a number.
func IntQuery(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return n
}
