// Package binding fills request structs from query strings and JSON bodies
// and validates them with go-playground/validator struct tags.
package binding

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	validatorV10 "github.com/go-playground/validator/v10"

	"github.com/leeforge/thumbnailer/json"
)

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// Query 使用默认的查询参数解析器绑定查询参数到结构体
func Query(r *http.Request, v any) error {
	return QueryWithParser(r, v, NewQueryParser())
}

// JSON decodes the request body into v and validates it. Unknown fields are
// rejected; missing fields take their `default` tag value.
func JSON(r *http.Request, v any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return &BindError{Type: "bind_error", Message: "request body is empty"}
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &BindError{Type: "bind_error", Message: "request body is empty"}
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return &BindError{
			Type:    "json_error",
			Message: "failed to unmarshal JSON: " + err.Error(),
		}
	}

	return validate(v)
}

func validate(v any) error {
	err := validator.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validatorV10.ValidationErrors
	if errors.As(err, &validationErrors) {
		bindErrors := make(ValidationErrors, 0, len(validationErrors))
		for _, ve := range validationErrors {
			bindErrors = append(bindErrors, BindError{
				Type:    "validation_error",
				Field:   ve.Field(),
				Message: getValidationMessage(ve),
			})
		}
		return bindErrors
	}
	return &BindError{
		Type:    "validation_error",
		Message: err.Error(),
	}
}
