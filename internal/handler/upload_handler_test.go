package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studentrank/internal/handler"
	"studentrank/internal/service"
)

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) ImportCSV(filePath string) (*service.ProgressInfo, error) {
	args := m.Called(filePath)
	progress, _ := args.Get(0).(*service.ProgressInfo)
	return progress, args.Error(1)
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadCSV(t *testing.T) {
	uploadDir := filepath.Join(t.TempDir(), "uploads")
	savePath := filepath.Join(uploadDir, "roster.csv")

	mockService := new(MockImportService)
	mockService.On("ImportCSV", savePath).Return(&service.ProgressInfo{
		FileName: "roster.csv", TotalRecords: 1, Processed: 1, Imported: 1, Status: service.StatusCompleted,
	}, nil)

	csvContent := []byte("name,registration_id,mark1,mark2,mark3\nAnn,R1,90,80,70\n")
	body, contentType := multipartBody(t, map[string][]byte{"../../roster.csv": csvContent})

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.NewUploadHandler(mockService, uploadDir).UploadCSV(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)

	saved, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, csvContent, saved)

	var response struct {
		Files []service.ProgressInfo `json:"files"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Files, 1)
	assert.Equal(t, 1, response.Files[0].Imported)
}

func TestUploadCSV_ImportError(t *testing.T) {
	uploadDir := t.TempDir()

	mockService := new(MockImportService)
	mockService.On("ImportCSV", mock.AnythingOfType("string")).Return(&service.ProgressInfo{
		FileName: "roster.csv", Status: service.StatusError, Error: "store: io failure",
	}, errors.New("import aborted"))

	body, contentType := multipartBody(t, map[string][]byte{"roster.csv": []byte("name\n")})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.NewUploadHandler(mockService, uploadDir).UploadCSV(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.StatusError)
}

func TestUploadCSV_NoFiles(t *testing.T) {
	mockService := new(MockImportService)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.NewUploadHandler(mockService, t.TempDir()).UploadCSV(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	respBody, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(respBody), "No files uploaded")
	mockService.AssertNotCalled(t, "ImportCSV", mock.Anything)
}

func TestUploadCSV_FileTooLarge(t *testing.T) {
	mockService := new(MockImportService)
	h := handler.NewUploadHandler(mockService, t.TempDir())
	h.MaxUploadSize = 1024

	body, contentType := multipartBody(t, map[string][]byte{"large.csv": make([]byte, 4096)})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.UploadCSV(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	mockService.AssertNotCalled(t, "ImportCSV", mock.Anything)
}
