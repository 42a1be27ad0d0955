package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/goydb/setview/internal/controller"
	"github.com/goydb/setview/pkg/model"
)

func WriteError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	statusText := strings.ToLower(http.StatusText(status))
	statusText = strings.ReplaceAll(statusText, " ", "_")
	statusText = strings.ReplaceAll(statusText, "'", "")

	json.NewEncoder(w).Encode(ErrorResponse{ // nolint: errcheck
		Error:  statusText,
		Reason: reason,
	})
}

// WriteErr writes err with the status matching its kind.
func WriteErr(w http.ResponseWriter, err error) {
	var (
		verr *model.ValidationError
		terr *model.TypeError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &terr):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, controller.ErrGroupNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, controller.ErrCompactionRunning):
		WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("request failed: %v", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}
