package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"studentrank/internal/model"
	"studentrank/internal/store"
)

// Import statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

const progressEvery = 100

type ProgressInfo struct {
	JobID        string
	FileName     string
	TotalRecords int
	Processed    int
	Imported     int
	Rejected     int
	Status       string // "processing", "completed", "error"
	Error        string
	StartTime    time.Time
	EndTime      time.Time
}

// StudentAdder adds one student from raw field values.
type StudentAdder interface {
	AddStudent(in AddStudentInput) (model.Student, error)
}

// ImportService loads roster CSV files row by row through the regular add
// path, so imported rows get the same validation as typed ones.
type ImportService struct {
	students          StudentAdder
	logger            *slog.Logger
	fileProgressMap   map[string]*ProgressInfo
	fileProgressLock  sync.RWMutex
	progressListeners map[chan *ProgressInfo]bool // Track SSE listeners
	listenerLock      sync.RWMutex
}

func NewImportService(students StudentAdder, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		students:          students,
		logger:            logger,
		fileProgressMap:   make(map[string]*ProgressInfo),
		progressListeners: make(map[chan *ProgressInfo]bool),
	}
}

func (s *ImportService) RegisterProgressListener(ch chan *ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	s.progressListeners[ch] = true
}

// UnregisterProgressListener removes a client from receiving progress updates
func (s *ImportService) UnregisterProgressListener(ch chan *ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	delete(s.progressListeners, ch)
}

// BroadcastProgress sends a snapshot of progress to every listener that is
// ready to receive it.
func (s *ImportService) BroadcastProgress(progress *ProgressInfo) {
	s.listenerLock.RLock()
	defer s.listenerLock.RUnlock()

	for listener := range s.progressListeners {
		snapshot := *progress
		select {
		case listener <- &snapshot:
		default:
			// Skip if the listener is not ready
		}
	}
}

func (s *ImportService) updateProgress(fileName string, processed, imported, rejected int) {
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		progress.Processed = processed
		progress.Imported = imported
		progress.Rejected = rejected
		// The pre-count may miss rows a quoted field spans.
		if progress.Processed > progress.TotalRecords {
			progress.TotalRecords = progress.Processed
		}
		s.BroadcastProgress(progress)
	}
}

func (s *ImportService) updateProgressError(fileName string, errorMsg string) {
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		progress.Status = StatusError
		progress.Error = errorMsg
		progress.EndTime = time.Now()
		s.BroadcastProgress(progress)
	}
}

func (s *ImportService) GetFileProgress(fileName string) *ProgressInfo {
	s.fileProgressLock.RLock()
	defer s.fileProgressLock.RUnlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		// Return a copy to avoid race conditions
		copyProgress := *progress
		return &copyProgress
	}

	return nil
}

// GetAllFileProgress returns every tracked import, oldest first.
func (s *ImportService) GetAllFileProgress() []*ProgressInfo {
	s.fileProgressLock.RLock()
	defer s.fileProgressLock.RUnlock()

	result := make([]*ProgressInfo, 0, len(s.fileProgressMap))
	for _, progress := range s.fileProgressMap {
		copyProgress := *progress
		result = append(result, &copyProgress)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].FileName < result[j].FileName
	})

	return result
}

// ImportCSV adds every data row of a roster file. Rows with missing fields,
// bad marks or duplicate ids are counted as rejected and skipped. A store
// failure stops the import.
func (s *ImportService) ImportCSV(filePath string) (*ProgressInfo, error) {
	fileName := filepath.Base(filePath)
	startTime := time.Now()

	// Initialize progress tracking
	s.fileProgressLock.Lock()
	s.fileProgressMap[fileName] = &ProgressInfo{
		JobID:     uuid.New().String(),
		FileName:  fileName,
		Status:    StatusProcessing,
		StartTime: startTime,
	}
	s.fileProgressLock.Unlock()

	totalRecords, err := s.countRecords(filePath)
	if err != nil {
		s.updateProgressError(fileName, "Failed to count records: "+err.Error())
		return s.GetFileProgress(fileName), err
	}

	s.fileProgressLock.Lock()
	s.fileProgressMap[fileName].TotalRecords = totalRecords
	s.fileProgressLock.Unlock()

	file, err := os.Open(filePath)
	if err != nil {
		s.updateProgressError(fileName, "Failed to open file: "+err.Error())
		return s.GetFileProgress(fileName), err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Read() // Skip header row

	processed, imported, rejected := 0, 0, 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		processed++

		if err == nil && len(record) < 5 {
			err = fmt.Errorf("expected at least 5 fields, got %d", len(record))
		}
		if err == nil {
			_, err = s.students.AddStudent(AddStudentInput{
				Name:           record[0],
				RegistrationID: record[1],
				Mark1:          record[2],
				Mark2:          record[3],
				Mark3:          record[4],
			})
		}

		switch {
		case err == nil:
			imported++
		case errors.Is(err, store.ErrIOFailure), errors.Is(err, store.ErrNotConfigured):
			s.updateProgress(fileName, processed, imported, rejected)
			s.updateProgressError(fileName, err.Error())
			s.logger.Error("import aborted", "file", fileName, "row", processed, "error", err)
			return s.GetFileProgress(fileName), fmt.Errorf("%w: %s row %d: %v", ErrImportAborted, fileName, processed, err)
		default:
			rejected++
			s.logger.Warn("import row rejected", "file", fileName, "row", processed, "error", err)
		}

		if processed%progressEvery == 0 {
			s.updateProgress(fileName, processed, imported, rejected)
		}
	}

	s.updateProgress(fileName, processed, imported, rejected)

	s.fileProgressLock.Lock()
	if progress, exists := s.fileProgressMap[fileName]; exists {
		progress.Status = StatusCompleted
		progress.EndTime = time.Now()
		s.BroadcastProgress(progress)
	}
	s.fileProgressLock.Unlock()

	s.logger.Info("import completed", "file", fileName, "imported", imported, "rejected", rejected, "elapsed", time.Since(startTime))

	return s.GetFileProgress(fileName), nil
}

func (s *ImportService) countRecords(filePath string) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Read() // Skip header

	count := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return count, err
		}
		count++
	}

	return count, nil
}
