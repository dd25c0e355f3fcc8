package web

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// checkInboxMessage is returned for every register and reset request,
// whether or not an account matched. See the Server doc comment.
const checkInboxMessage = "if the details check out, an email is on its way"

func renderError(w http.ResponseWriter, msg string, status int) {
	render(w, errorResponse{Error: msg}, status)
}

func renderInternalError(w http.ResponseWriter) {
	renderError(w, "internal error", http.StatusInternalServerError)
}

func renderUnauthorized(w http.ResponseWriter) {
	renderError(w, "invalid credentials", http.StatusUnauthorized)
}

func render(w http.ResponseWriter, res any, status int) {
	w.Header().Set("Content-Type", "application/json")

	content, err := json.Marshal(res)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	w.Write(content)
}
