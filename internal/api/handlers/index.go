package handlers

import "net/http"

const banner = "deployd v1.0."

func Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(banner))
}
