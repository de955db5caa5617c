package drafting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// Draft limits.
const (
	MaxSubjectChars = 70
	MaxBodyWords    = 120
	MaxSources      = 3
)

// Email is the structured result expected from the model.
type Email struct {
	Subject string   `json:"subject" validate:"required,max=70"`
	Body    string   `json:"body" validate:"required"`
	Sources []string `json:"sources" validate:"max=3,dive,url"`
}

// payloadSchema describes the raw JSON object a model must return. Sources
// may be omitted; they are filled from evidence.
const payloadSchema = `{
  "type": "object",
  "required": ["subject", "body"],
  "properties": {
    "subject": {"type": "string", "minLength": 1},
    "body":    {"type": "string", "minLength": 1},
    "sources": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	validate     = validator.New()
	schemaLoader = gojsonschema.NewStringLoader(payloadSchema)
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every rule a draft broke.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	msgs := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return "invalid draft: " + strings.Join(msgs, "; ")
}

// checkPayload validates the raw model JSON against payloadSchema.
func checkPayload(raw string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}

// Validate checks the decoded email against the draft limits.
func (e *Email) Validate() error {
	ve := &ValidationError{}

	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param()),
			})
		}
	}
	if n := wordCount(e.Body); n > MaxBodyWords {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "Email.Body",
			Message: fmt.Sprintf("%d words, limit %d", n, MaxBodyWords),
		})
	}

	if len(ve.Errors) == 0 {
		return nil
	}
	return ve
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
