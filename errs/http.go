package errs

import (
	"encoding/json"
	"net/http"

	pkglog "wtfSocial/log"
)

// codes maps application error codes to http status codes.
var codes = map[string]int{
	ECONFLICT:     http.StatusConflict,
	EINVALID:      http.StatusBadRequest,
	ENOTFOUND:     http.StatusNotFound,
	EUNAUTHORIZED: http.StatusUnauthorized,
	EUNAVAILABLE:  http.StatusServiceUnavailable,
	EINTERNAL:     http.StatusInternalServerError,
}

// StatusCode returns the http status code for an application error code.
func StatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// ReturnError writes err as a json body with the matching status code.
// Internal and storage errors are logged with their cause.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)
	if code == EINTERNAL || code == EUNAVAILABLE {
		LogError(r, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(code))
	json.NewEncoder(w).Encode(&ErrorResponse{Error: message})
}

// LogError logs err with the request's logger.
func LogError(r *http.Request, err error) {
	l := pkglog.Ctx(r.Context())
	l.Error().Err(err).Str(pkglog.FieldMethod, r.Method).Str(pkglog.FieldPath, r.URL.Path).Msg("request failed")
}

// ErrorResponse is the json body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
