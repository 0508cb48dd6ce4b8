package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/andresmz/walletcore/internal/handlers/envelope"
)

var validate = validator.New()

func init() {
	// Report on 'TagName' json tag instead of struct field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		// skip if tag key says it should be ignored
		if name == "-" {
			return ""
		}
		return name
	})
}

type Struct any

// JSON sends the envelope with the given HTTP status.
func JSON(w http.ResponseWriter, env envelope.Envelope, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(env); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// OK sends a success envelope wrapping data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, envelope.OK(data), http.StatusOK)
}

// Error maps err to its envelope and status and sends it.
func Error(w http.ResponseWriter, err error) {
	env, code := envelope.FromError(err)
	JSON(w, env, code)
}

// BindAndValidate decodes the JSON request body into T and validates it
// with struct tags. Decode and validation failures are answered with a
// bad-request envelope; the caller just returns on error.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		JSON(w, envelope.Err(envelope.CodeBadRequest, decodeMessage(err)), http.StatusBadRequest)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// cast is safe, T is a plain struct
		errs := err.(validator.ValidationErrors)
		JSON(w, envelope.Err(envelope.CodeBadRequest, validationMessage(errs)), http.StatusBadRequest)
		return value, err
	}

	return value, nil
}

func decodeMessage(err error) string {
	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		return fmt.Sprintf("Invalid data type for field '%s'", err.Field)
	default:
		return fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fieldError := range errs {
		switch fieldError.Tag() {
		case "required":
			fields = append(fields, fmt.Sprintf("'%s' is required", fieldError.Field()))
		default:
			fields = append(fields, fmt.Sprintf("'%s' is invalid", fieldError.Field()))
		}
	}

	return "Request validation failed: " + strings.Join(fields, ", ")
}
