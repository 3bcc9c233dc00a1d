package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mdobak/go-xerrors"

	"github.com/marshallshelly/pebble-social/internal/social"
	"github.com/marshallshelly/pebble-social/pkg/runtime"
)

// StatusFor maps an error from a view to an HTTP status.
func StatusFor(err error) int {
	var validation *ValidationError
	var bad *badRequest

	switch {
	case errors.As(err, &bad), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.As(err, &validation), errors.Is(err, social.ErrSelfFollow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnknownView), runtime.IsNotFound(err):
		return http.StatusNotFound
	case runtime.IsUniqueViolation(err), runtime.IsForeignKeyViolation(err):
		return http.StatusConflict
	case runtime.IsCheckViolation(err), errors.Is(runtime.ClassifyError(err), runtime.ErrNotNullViolation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the client-facing description of err. Internal errors are
// not described.
func errorBody(status int, err error) map[string]any {
	body := map[string]any{"message": http.StatusText(status)}

	var validation *ValidationError
	var pgErr *pgconn.PgError
	switch {
	case status == http.StatusInternalServerError:
	case errors.As(err, &validation):
		body["message"] = "validation failed"
		body["fields"] = validation.Fields
	case errors.As(err, &pgErr):
		body["message"] = pgErr.Message
		body["constraint"] = pgErr.ConstraintName
		body["code"] = pgErr.Code
	case errors.Is(err, ErrUnknownView), runtime.IsNotFound(err):
		body["message"] = "the requested resource could not be found"
	default:
		body["message"] = err.Error()
	}
	return body
}

func (s *server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	level := slog.LevelWarn
	attrs := []slog.Attr{
		slog.String("request_url", r.URL.String()),
		slog.String("request_method", r.Method),
		slog.Int("status", status),
		slog.String("request_id", requestID(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
		attrs = append(attrs, slog.String("stack", xerrors.Sprint(err)))
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(r.Context(), level, "admin request failed", attrs...)

	if err := s.writeJSON(w, status, envelope{"error": errorBody(status, err)}, nil); err != nil {
		s.logger.Error("failed to write error response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *server) notFound(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, runtime.ErrNotFound)
}

func (s *server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	status := http.StatusMethodNotAllowed
	_ = s.writeJSON(w, status, envelope{"error": map[string]any{"message": http.StatusText(status)}}, nil)
}
