package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin/binding"
)

const maxBodyBytes = 1 << 20

// JSON decodes a single JSON object from the request body, rejecting
// unknown fields and trailing data.
func JSON(r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("empty request body")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}

	return nil
}

// ValidationError wraps a struct validation failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Validated decodes like JSON and then runs the `binding` struct tags.
func Validated(r *http.Request, dest any) error {
	if err := JSON(r, dest); err != nil {
		return err
	}
	if err := binding.Validator.ValidateStruct(dest); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
