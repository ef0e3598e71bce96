package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Decoder reads JSON request bodies and validates them with struct tags.
type Decoder struct {
	validate     *validator.Validate
	maxBodyBytes int64
}

// NewDecoder creates a Decoder rejecting bodies larger than maxBodyBytes.
func NewDecoder(maxBodyBytes int64) *Decoder {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Decoder{validate: v, maxBodyBytes: maxBodyBytes}
}

// DecodeValid decodes the request body into dst and validates it.
// On failure it writes a 400 reply and returns false.
func (d *Decoder) DecodeValid(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, d.maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			RespondError(w, logger, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			RespondError(w, logger, http.StatusBadRequest, "request body is empty")
		default:
			RespondError(w, logger, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		}
		return false
	}

	if err := d.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			logger.Error("Validation failed unexpectedly", "error", err)
			RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
			return false
		}
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = describe(fe)
		}
		RespondJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: details})
		return false
	}
	return true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "failed on " + fe.Tag()
	}
}
