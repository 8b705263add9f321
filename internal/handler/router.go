package handler

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter registers every endpoint.
func NewRouter(students *StudentHandler, uploads *UploadHandler, progress *ProgressHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/students", students.AddStudent).Methods(http.MethodPost)
	r.HandleFunc("/students", students.ListStudents).Methods(http.MethodGet)
	r.HandleFunc("/rankings", students.Rankings).Methods(http.MethodGet)
	r.HandleFunc("/rankings/chart", students.Chart).Methods(http.MethodGet)

	r.HandleFunc("/upload", uploads.UploadCSV).Methods(http.MethodPost)

	r.HandleFunc("/progress", progress.GetAllProgress).Methods(http.MethodGet)
	r.HandleFunc("/progress/file", progress.GetFileProgress).Methods(http.MethodGet)
	r.HandleFunc("/progress/events", progress.SSEProgress).Methods(http.MethodGet)

	return r
}

// Wrap adds CORS, panic recovery and access logging around h.
func Wrap(h http.Handler, allowedOrigins []string, accessLog io.Writer) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))
	return handlers.CombinedLoggingHandler(accessLog, recovery(cors(h)))
}
