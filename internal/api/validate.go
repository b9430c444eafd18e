package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/alecgard/troupe/internal/account"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// requested_role accepts the roles a signup may ask for; admin is never
	// self-service.
	_ = v.RegisterValidation("requested_role", func(fl validator.FieldLevel) bool {
		switch account.Role(fl.Field().String()) {
		case account.RoleDancer, account.RoleClient, account.RoleManager:
			return true
		}
		return false
	})
	return v
}

// validationMessage renders the first failing field of a validator error.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "uuid":
		return fe.Field() + " must be a UUID"
	case "url":
		return fe.Field() + " must be a URL"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "nefield":
		return fe.Field() + " must differ from " + fe.Param()
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "requested_role":
		return fe.Field() + " must be dancer, client or manager"
	default:
		return fe.Field() + " is invalid"
	}
}

// uuidParam returns the named path parameter, writing a 422 and returning
// false when it is not a UUID.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := chi.URLParam(r, name)
	if _, err := uuid.Parse(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", name+" must be a UUID")
		return "", false
	}
	return v, true
}
