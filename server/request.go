package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// recommendRequest holds the query parameters shared by the recommendation,
// analytics and view endpoints.
type recommendRequest struct {
	View  string `query:"view" validate:"omitempty,oneof=recommendations analytics"`
	Query string `query:"q" validate:"required,max=512"`
	By    string `query:"by" validate:"required,oneof=title author"`
	N     int    `query:"n" validate:"min=1,maxn"`
	Top   int    `query:"top" validate:"min=1,max=100"`
}

type optionsRequest struct {
	By string `query:"by" validate:"required,oneof=title author"`
}

// newValidator builds a validator whose maxn tag enforces the configured
// upper bound on result counts. Field names in errors are query parameter names.
func newValidator(maxN int) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("query"); name != "" {
			return name
		}
		return field.Name
	})
	// RegisterValidation only fails for an empty tag or nil func.
	_ = v.RegisterValidation("maxn", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(maxN)
	})
	return v
}

func (s *Server) parseRecommendRequest(r *http.Request) (recommendRequest, error) {
	q := r.URL.Query()
	req := recommendRequest{
		View:  strings.ToLower(strings.TrimSpace(q.Get("view"))),
		Query: strings.TrimSpace(q.Get("q")),
		By:    strings.ToLower(strings.TrimSpace(q.Get("by"))),
		N:     s.cfg.DefaultN,
		Top:   s.cfg.TopK,
	}
	if req.By == "" {
		req.By = "title"
	}

	var err error
	if req.N, err = intParam(q.Get("n"), req.N); err != nil {
		return req, fmt.Errorf("n must be an integer")
	}
	if req.Top, err = intParam(q.Get("top"), req.Top); err != nil {
		return req, fmt.Errorf("top must be an integer")
	}

	if err := s.validate.Struct(&req); err != nil {
		return req, s.validationError(err)
	}
	return req, nil
}

func (s *Server) parseOptionsRequest(r *http.Request) (optionsRequest, error) {
	req := optionsRequest{By: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("by")))}
	if req.By == "" {
		req.By = "title"
	}
	if err := s.validate.Struct(&req); err != nil {
		return req, s.validationError(err)
	}
	return req, nil
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// validationError turns validator output into one readable message per field.
func (s *Server) validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, s.fieldMessage(fe))
	}
	return errors.New(strings.Join(messages, "; "))
}

func (s *Server) fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "maxn":
		return fmt.Sprintf("%s must be at most %d", fe.Field(), s.cfg.MaxN)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
