package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"hostel-allocation-backend/internal/apperr"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:   http.StatusNotFound,
	apperr.KindConflict:   http.StatusBadRequest,
	apperr.KindValidation: http.StatusBadRequest,
	apperr.KindInternal:   http.StatusInternalServerError,
}

// writeError renders a service error. Internal errors never expose their cause.
func writeError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal("Internal server error", err)
	}

	body := gin.H{"error": appErr.Message}
	if appErr.Kind != apperr.KindInternal && len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(statusByKind[appErr.Kind], body)
}

// bindError renders a request binding failure with the offending fields.
func bindError(c *gin.Context, err error) {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		syntax  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		details := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		writeError(c, apperr.Validation("Validation failed").WithDetails(details))
	case errors.As(err, &typeErr):
		writeError(c, apperr.Validation(fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)).
			WithDetails(map[string]any{typeErr.Field: "type"}))
	case errors.As(err, &syntax):
		writeError(c, apperr.Validation("Malformed JSON body"))
	case errors.Is(err, io.EOF):
		writeError(c, apperr.Validation("Request body is required"))
	default:
		writeError(c, apperr.Validation("Invalid request"))
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, apperr.Validation(fmt.Sprintf("Invalid %s", name)).WithDetails(map[string]any{name: c.Param(name)}))
		return 0, false
	}
	return id, true
}
