package contract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("image_payload", func(fl validator.FieldLevel) bool {
		_, err := DecodeImagePayload(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("produce_type", func(fl validator.FieldLevel) bool {
		return ProduceType(fl.Field().String()).Valid()
	})
	return v
}

// Validate returns nil for a well-formed request, otherwise the first
// offending field.
func (r GradeRequest) Validate() *ValidationError {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Error: true, Message: fieldMessage(fe), Field: fe.Field()}
	}
	return &ValidationError{Error: true, Message: err.Error()}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "produce_type":
		names := make([]string, 0, len(ProduceTypes()))
		for _, p := range ProduceTypes() {
			names = append(names, string(p))
		}
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(names, ", "))
	case "image_payload":
		return fe.Field() + " must be base64-encoded image data"
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// DecodeImagePayload strips an optional data URI header and decodes the
// base64 payload. Padded and unpadded encodings are both accepted.
func DecodeImagePayload(s string) ([]byte, error) {
	_, payload, err := SplitDataURI(s)
	if err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, errors.New("empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(payload)
		if rawErr != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, errors.New("empty image payload")
	}
	return data, nil
}
