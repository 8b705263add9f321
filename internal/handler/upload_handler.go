package handler

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"studentrank/internal/service"
)

const defaultMaxUploadSize = 100 << 20 // 100MB

// ImportService imports a saved roster file.
type ImportService interface {
	ImportCSV(filePath string) (*service.ProgressInfo, error)
}

type UploadHandler struct {
	importService ImportService
	uploadDir     string

	// MaxUploadSize caps the request body.
	MaxUploadSize int64
}

func NewUploadHandler(importService ImportService, uploadDir string) *UploadHandler {
	return &UploadHandler{
		importService: importService,
		uploadDir:     uploadDir,
		MaxUploadSize: defaultMaxUploadSize,
	}
}

// UploadCSV saves each uploaded roster file and imports it. Files are
// imported one after another within the request.
func (h *UploadHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	// Ensure uploads directory exists
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		slog.Error("creating upload directory", "dir", h.uploadDir, "error", err)
		http.Error(w, "Failed to create uploads directory", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize)
	if err := r.ParseMultipartForm(h.MaxUploadSize); err != nil {
		http.Error(w, "File too large or bad request", http.StatusRequestEntityTooLarge)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	results := make([]*service.ProgressInfo, 0, len(files))
	for _, header := range files {
		// Only the base name is kept so a crafted name cannot leave uploadDir.
		savePath := filepath.Join(h.uploadDir, filepath.Base(header.Filename))
		if err := saveUpload(header, savePath); err != nil {
			slog.Error("saving upload", "file", header.Filename, "error", err)
			continue
		}

		progress, err := h.importService.ImportCSV(savePath)
		if err != nil {
			slog.Error("importing upload", "file", savePath, "error", err)
		}
		if progress != nil {
			results = append(results, progress)
		}
	}

	if len(results) == 0 {
		http.Error(w, "No files could be imported", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Files imported",
		"files":   results,
	})
}

func saveUpload(header *multipart.FileHeader, savePath string) error {
	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	outFile, err := os.Create(savePath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, file); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
