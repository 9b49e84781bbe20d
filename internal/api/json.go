package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"haulplan/internal/store"
)

// Problem is an RFC7807 problem details body. Every non-2xx response from
// the API uses this shape.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeStoreErr maps store errors to problems: ErrNotFound becomes a 404
// with the given title, anything else a 500.
func writeStoreErr(w http.ResponseWriter, err error, notFoundTitle, instance string) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, notFoundTitle, "", instance)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Storage error", err.Error(), instance)
}
