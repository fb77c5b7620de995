package handlers

import (
	"net/http"
	"sync/atomic"

	apperrors "github.com/guggeis/chatrelay/internal/errors"
)

// ErrorResponder writes err to w as a JSON error body.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

var errorResponder atomic.Pointer[ErrorResponder]

// SetHTTPErrorResponder routes handler errors through responder. Nil restores
// the package default, apperrors.RespondWithError.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		errorResponder.Store(nil)
		return
	}
	fn := ErrorResponder(responder)
	errorResponder.Store(&fn)
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	SetHTTPErrorResponder(nil)
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if fn := errorResponder.Load(); fn != nil {
		(*fn)(w, r, err)
		return
	}
	apperrors.RespondWithError(w, r, err)
}
