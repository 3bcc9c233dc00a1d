package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/mdobak/go-xerrors"
)

type envelope map[string]any

const maxBodyBytes = 1_048_576

func (s *server) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// badRequest marks client input that could not be decoded.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func malformed(format string, args ...any) error {
	return xerrors.New(&badRequest{msg: fmt.Sprintf(format, args...)})
}

// readJSON decodes a single JSON object from the body. Numbers stay
// json.Number so large ids survive.
func (s *server) readJSON(w http.ResponseWriter, r *http.Request, dst *map[string]any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		var (
			syntaxError        *json.SyntaxError
			unmarshalTypeError *json.UnmarshalTypeError
			maxBytesError      *http.MaxBytesError
		)

		switch {
		case errors.As(err, &syntaxError):
			return malformed("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return malformed("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			return malformed("body must be a JSON object")
		case errors.Is(err, io.EOF):
			return malformed("body must not be empty")
		case errors.As(err, &maxBytesError):
			return malformed("body must not be larger than %d bytes", maxBodyBytes)
		default:
			return xerrors.New(err)
		}
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return malformed("body must contain only a single JSON value")
	}
	if *dst == nil {
		return malformed("body must be a JSON object")
	}
	return nil
}

func readID(r *http.Request) (int, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil || id < 1 {
		return 0, xerrors.New(ErrInvalidID)
	}
	return id, nil
}

// readPage parses page and page_size, falling back to page 1 and def.
func readPage(r *http.Request, def int) (int, int, error) {
	qs := r.URL.Query()
	page, size := 1, def

	if v := qs.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, malformed("page must be a positive integer")
		}
		page = n
	}
	if v := qs.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return 0, 0, malformed("page_size must be between 1 and 100")
		}
		size = n
	}
	return page, size, nil
}
