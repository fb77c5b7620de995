package server

import (
	"net/http"

	apperrors "github.com/guggeis/chatrelay/internal/errors"
)

// HandleError writes err as the flat {"error","code"} body.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
