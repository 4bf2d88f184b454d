package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"unidash/internal/analytics"
	apierrors "unidash/internal/errors"
)

const selectionKey contextKey = "selection"

// SelectionQuery is the raw year/term selector pair from the query string.
type SelectionQuery struct {
	Year string `json:"year" validate:"omitempty,max=16,year_or_all"`
	Term string `json:"term" validate:"omitempty,max=32,term"`
}

// SelectionValidator validates selector query parameters and stores the
// parsed selection in the request context.
type SelectionValidator struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSelectionValidator creates a new selection validator
func NewSelectionValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SelectionValidator {
	return &SelectionValidator{
		validator:    newValidator(),
		logger:       logger.With(slog.String("component", "selection_validator")),
		errorHandler: errorHandler,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("year_or_all", isYearOrAll)
	v.RegisterValidation("term", isValidTerm)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Handler validates ?year= and ?term= and rejects invalid values with a 400
// problem response.
func (sv *SelectionValidator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sel, err := sv.Parse(SelectionQuery{Year: q.Get("year"), Term: q.Get("term")})
		if err != nil {
			sv.logger.WarnContext(r.Context(), "invalid selection",
				slog.String("query", r.URL.RawQuery),
				slog.String("error", err.Error()))
			sv.errorHandler.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), selectionKey, sel)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Parse validates q and converts it to a selection.
func (sv *SelectionValidator) Parse(q SelectionQuery) (analytics.Selection, error) {
	if err := sv.ValidateStruct(q); err != nil {
		return analytics.Selection{}, err
	}
	sel, err := analytics.ParseSelection(q.Year, q.Term)
	if err != nil {
		return analytics.Selection{}, apierrors.ErrValidation("year", err.Error())
	}
	return sel, nil
}

// ValidateStruct validates a struct and returns validation errors
func (sv *SelectionValidator) ValidateStruct(v interface{}) error {
	err := sv.validator.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// SelectionFromContext returns the selection stored by SelectionValidator.
// Without one, the zero selection (All, All) is returned.
func SelectionFromContext(ctx context.Context) (analytics.Selection, bool) {
	sel, ok := ctx.Value(selectionKey).(analytics.Selection)
	return sel, ok
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, err.Param())
	case "year_or_all":
		return fmt.Sprintf("%s must be %q or a whole year", field, analytics.All)
	case "term":
		return fmt.Sprintf("%s must not contain control characters", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isYearOrAll accepts "All" in any case or an integer year.
func isYearOrAll(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if strings.EqualFold(s, analytics.All) {
		return true
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// isValidTerm accepts any printable text. Terms are stored verbatim, so
// punctuation such as "Summer_1" or "Spring (Online)" is a legal value.
func isValidTerm(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
