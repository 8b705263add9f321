package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studentrank/internal/handler"
	"studentrank/internal/service"
)

type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) GetFileProgress(fileName string) *service.ProgressInfo {
	args := m.Called(fileName)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*service.ProgressInfo)
}

func (m *MockProgressService) GetAllFileProgress() []*service.ProgressInfo {
	args := m.Called()
	return args.Get(0).([]*service.ProgressInfo)
}

func (m *MockProgressService) RegisterProgressListener(ch chan *service.ProgressInfo) {
	m.Called(ch)
}

func (m *MockProgressService) UnregisterProgressListener(ch chan *service.ProgressInfo) {
	m.Called(ch)
}

func TestGetFileProgress(t *testing.T) {
	mockService := new(MockProgressService)

	progress := &service.ProgressInfo{
		FileName:     "test.csv",
		TotalRecords: 100,
		Processed:    50,
		Status:       service.StatusProcessing,
	}
	mockService.On("GetFileProgress", "test.csv").Return(progress)
	mockService.On("GetFileProgress", "nonexistent.csv").Return(nil)

	router := mux.NewRouter()
	router.HandleFunc("/progress/file", handler.NewProgressHandler(mockService).GetFileProgress)

	// Existing file
	req := httptest.NewRequest(http.MethodGet, "/progress/file?fileName=test.csv", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response service.ProgressInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "test.csv", response.FileName)
	assert.Equal(t, 100, response.TotalRecords)
	assert.Equal(t, 50, response.Processed)

	// Non-existent file
	req = httptest.NewRequest(http.MethodGet, "/progress/file?fileName=nonexistent.csv", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Without filename parameter
	req = httptest.NewRequest(http.MethodGet, "/progress/file", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}

func TestGetAllProgress(t *testing.T) {
	mockService := new(MockProgressService)

	progressList := []*service.ProgressInfo{
		{FileName: "file1.csv", TotalRecords: 100, Processed: 75, Status: service.StatusProcessing},
		{FileName: "file2.csv", TotalRecords: 200, Processed: 200, Status: service.StatusCompleted},
	}
	mockService.On("GetAllFileProgress").Return(progressList)

	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	w := httptest.NewRecorder()
	handler.NewProgressHandler(mockService).GetAllProgress(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []*service.ProgressInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response, 2)
	assert.Equal(t, "file1.csv", response[0].FileName)
	assert.Equal(t, "file2.csv", response[1].FileName)
	assert.Equal(t, service.StatusProcessing, response[0].Status)
	assert.Equal(t, service.StatusCompleted, response[1].Status)

	mockService.AssertExpectations(t)
}

func TestSSEProgress(t *testing.T) {
	mockService := new(MockProgressService)

	listener := make(chan chan *service.ProgressInfo, 1)
	mockService.On("RegisterProgressListener", mock.AnythingOfType("chan *service.ProgressInfo")).
		Run(func(args mock.Arguments) {
			listener <- args.Get(0).(chan *service.ProgressInfo)
		}).Return()
	mockService.On("UnregisterProgressListener", mock.AnythingOfType("chan *service.ProgressInfo")).Return()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/progress/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.NewProgressHandler(mockService).SSEProgress(w, req)
		close(done)
	}()

	var ch chan *service.ProgressInfo
	select {
	case ch = <-listener:
	case <-time.After(time.Second):
		t.Fatal("handler did not register a listener")
	}
	ch <- &service.ProgressInfo{FileName: "roster.csv", Processed: 3, Status: service.StatusCompleted}

	// Give the handler time to write the event before disconnecting.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after the client disconnected")
	}

	resp := w.Result()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "keep-alive", resp.Header.Get("Connection"))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: "))
	assert.Contains(t, body, `"FileName":"roster.csv"`)

	mockService.AssertExpectations(t)
}
