package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	IngestErrorBadInput     = "INGEST_BAD_INPUT"
	IngestErrorUnauthorized = "INGEST_UNAUTHORIZED"
	IngestErrorNotFound     = "INGEST_NOT_FOUND"
	IngestErrorUpstream     = "INGEST_UPSTREAM_FAILED"
	IngestErrorInternal     = "INGEST_INTERNAL_ERROR"
)

func NewBadInputError(message string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, goerrors.CategoryBadInput).
			WithTextCode(IngestErrorBadInput),
	)
}

func NewAuthError(message string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, goerrors.CategoryAuth).
			WithTextCode(IngestErrorUnauthorized),
	)
}

func NewInternalError(message string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, goerrors.CategoryInternal).
			WithTextCode(IngestErrorInternal),
	)
}

func WrapAuthError(err error, message string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryAuth, message).
			WithTextCode(IngestErrorUnauthorized),
	)
}

func WrapBadInputError(err error, message string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryBadInput, message).
			WithTextCode(IngestErrorBadInput),
	)
}

func WrapInternalError(err error, message string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryInternal, message).
			WithTextCode(IngestErrorInternal),
	)
}

// MapError normalizes any error into a go-errors envelope with an HTTP code
// and an INGEST_* text code. Signature and secret failures map to auth so the
// transport answers 401 before any business logic runs.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"), strings.Contains(msg, "secret"):
		return ensureErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryAuth, err.Error()).
				WithTextCode(IngestErrorUnauthorized),
		)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"),
		strings.Contains(msg, "missing"), strings.Contains(msg, "parse"):
		return ensureErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).
				WithTextCode(IngestErrorBadInput),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

// HTTPStatus resolves the response code for an error, falling back to 500.
func HTTPStatus(err error) int {
	mapped := MapError(err)
	if mapped == nil {
		return http.StatusOK
	}
	if mapped.Code != 0 {
		return mapped.Code
	}
	return http.StatusInternalServerError
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return IngestErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return IngestErrorUnauthorized
	case goerrors.CategoryNotFound:
		return IngestErrorNotFound
	case goerrors.CategoryOperation:
		return IngestErrorUpstream
	default:
		return IngestErrorInternal
	}
}

func httpStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
