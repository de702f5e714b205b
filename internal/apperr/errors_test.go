package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "pg unique", err: &pgconn.PgError{Code: "23505", Message: "dup"}, want: ErrDuplicate},
		{name: "pg fk", err: &pgconn.PgError{Code: "23503", Message: "fk"}, want: ErrReferenced},
		{name: "wrapped pg unique", err: errors.Wrap(&pgconn.PgError{Code: "23505"}, "insert"), want: ErrDuplicate},
		{name: "gorm duplicated", err: gorm.ErrDuplicatedKey, want: ErrDuplicate},
		{name: "gorm fk", err: gorm.ErrForeignKeyViolated, want: ErrReferenced},
		{name: "not found", err: gorm.ErrRecordNotFound, want: ErrNotFound},
		{name: "message duplicate", err: fmt.Errorf("ERROR: duplicate key value"), want: ErrDuplicate},
		{name: "message fk", err: fmt.Errorf("violates foreign key constraint"), want: ErrReferenced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tt.err), tt.want)
		})
	}
}

func TestClassifyLeavesOtherErrors(t *testing.T) {
	err := fmt.Errorf("connection refused")
	assert.Equal(t, err, Classify(err))
	assert.Nil(t, Classify(nil))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(Invalid("title", "is required")))
	assert.Equal(t, http.StatusConflict, Status(Duplicate("exists")))
	assert.Equal(t, http.StatusNotFound, Status(NotFound("missing")))
	assert.Equal(t, http.StatusForbidden, Status(Forbidden("no")))
	assert.Equal(t, http.StatusInternalServerError, Status(fmt.Errorf("boom")))
}

func TestValidate(t *testing.T) {
	type req struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=6"`
		Confirm  string `validate:"eqfield=Password"`
	}

	err := Validate(req{Email: "a@b.co", Password: "secret", Confirm: "secret"})
	assert.NoError(t, err)

	err = Validate(req{Email: "a@b.co", Password: "abc", Confirm: "abc"})
	var verr *ValidationError
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "password", verr.Field)
	}
	assert.ErrorIs(t, err, ErrValidation)

	err = Validate(req{Email: "a@b.co", Password: "secret", Confirm: "other"})
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "confirm", verr.Field)
		assert.Equal(t, "must match password", verr.Message)
	}
}

func TestValidateReportsJSONKeys(t *testing.T) {
	type req struct {
		FullName        string `json:"full_name" validate:"required"`
		Password        string `json:"password,omitempty" validate:"required"`
		ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	}

	var verr *ValidationError
	err := Validate(req{Password: "secret", ConfirmPassword: "secret"})
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "full_name", verr.Field)
	}

	err = Validate(req{FullName: "Ana", Password: "secret", ConfirmPassword: "other"})
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "confirm_password", verr.Field)
	}
}
