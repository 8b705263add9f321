// Package store keeps the student roster in memory and mirrors it to an
// append-only CSV file.
//
// The in-memory sequence is authoritative while the process runs. The file is
// read once when the store is configured and afterwards only appended to, one
// line per added student. A Store is not safe for concurrent use; callers
// that serve several goroutines serialize access themselves.
package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"studentrank/internal/model"
)

// Header is the first line of every roster file.
var Header = []string{"name", "registration_id", "mark1", "mark2", "mark3", "average"}

type Store struct {
	path     string
	students []model.Student
	ids      map[string]struct{}
	skipped  int

	// needsHeader is true while the bound file is absent or blank.
	needsHeader bool

	// needsNewline is true when the file does not end with a line break.
	needsNewline bool

	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty, unconfigured store.
func New(opts ...Option) *Store {
	s := &Store{
		students: []model.Student{},
		ids:      make(map[string]struct{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store bound to path, loading it when the file exists.
func Open(path string, opts ...Option) (*Store, error) {
	s := New(opts...)
	if err := s.Configure(path); err != nil {
		return nil, err
	}
	return s, nil
}

// Configure binds the store to path. An existing file is loaded right away;
// a missing one is created by the first Add.
func (s *Store) Configure(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		prev := s.path
		s.path = path
		if err := s.Load(); err != nil {
			s.path = prev
			return err
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		s.path = path
		s.reset()
		return nil
	default:
		return ioError("configure", path, err)
	}
}

// Path returns the bound file, or "" before Configure.
func (s *Store) Path() string {
	return s.path
}

// Add validates the raw fields, appends the record to the file and then to
// memory. Nothing changes when any step fails.
func (s *Store) Add(name, registrationID, mark1, mark2, mark3 string) (model.Student, error) {
	if s.path == "" {
		return model.Student{}, ErrNotConfigured
	}

	student, err := model.ParseStudent(name, registrationID, mark1, mark2, mark3)
	if err != nil {
		return model.Student{}, err
	}
	if _, exists := s.ids[student.RegistrationID]; exists {
		return model.Student{}, fmt.Errorf("%q: %w", student.RegistrationID, model.ErrDuplicateID)
	}

	if err := s.appendLine(student); err != nil {
		return model.Student{}, err
	}

	s.students = append(s.students, student)
	s.ids[student.RegistrationID] = struct{}{}
	return student, nil
}

// Load replaces the in-memory sequence with the file contents. The first
// non-blank line is taken as the header. Malformed rows and repeated registration ids
// are skipped with a warning; only I/O errors fail the load.
func (s *Store) Load() error {
	if s.path == "" {
		return ErrNotConfigured
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.reset()
		return nil
	}
	if err != nil {
		return ioError("load", s.path, err)
	}

	students, ids, skipped := s.parse(data)
	s.students = students
	s.ids = ids
	s.skipped = skipped
	s.needsHeader = len(bytes.TrimSpace(data)) == 0
	s.needsNewline = len(data) > 0 && data[len(data)-1] != '\n'

	s.logger.Info("roster loaded", "path", s.path, "students", len(students), "skipped", skipped)
	return nil
}

// All returns a copy of the roster in insertion order.
func (s *Store) All() []model.Student {
	out := make([]model.Student, len(s.students))
	copy(out, s.students)
	return out
}

// Len returns the number of records in memory.
func (s *Store) Len() int {
	return len(s.students)
}

// Skipped returns the number of rows the last Load dropped.
func (s *Store) Skipped() int {
	return s.skipped
}

func (s *Store) reset() {
	s.students = []model.Student{}
	s.ids = make(map[string]struct{})
	s.skipped = 0
	s.needsHeader = true
	s.needsNewline = false
}

func (s *Store) parse(data []byte) ([]model.Student, map[string]struct{}, int) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	students := []model.Student{}
	ids := make(map[string]struct{})
	skipped := 0
	headerSeen := false

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		line := 0
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			line = parseErr.StartLine
		} else if len(row) > 0 {
			line, _ = reader.FieldPos(0)
		}

		if !headerSeen {
			if err == nil && isBlank(row) {
				continue
			}
			headerSeen = true
			if err == nil && !isHeader(row) {
				s.logger.Warn("unexpected roster header", "path", s.path, "line", line, "header", strings.Join(row, ","))
			}
			continue
		}

		if err == nil {
			var student model.Student
			student, err = parseRow(row)
			if err == nil {
				if _, exists := ids[student.RegistrationID]; !exists {
					ids[student.RegistrationID] = struct{}{}
					students = append(students, student)
					continue
				}
				err = fmt.Errorf("%q: %w", student.RegistrationID, model.ErrDuplicateID)
			}
		}

		skipped++
		s.logger.Warn("skipping roster row", "path", s.path, "line", line, "error", err)
	}

	return students, ids, skipped
}

func (s *Store) appendLine(student model.Student) error {
	var buf bytes.Buffer
	if s.needsNewline {
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(&buf)
	if s.needsHeader {
		_ = w.Write(Header)
	}
	_ = w.Write(encodeRow(student))
	w.Flush()
	if err := w.Error(); err != nil {
		return ioError("append", s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return ioError("append", s.path, err)
	}
	_, writeErr := f.Write(buf.Bytes())
	closeErr := f.Close()
	if writeErr != nil {
		return ioError("append", s.path, writeErr)
	}
	if closeErr != nil {
		return ioError("append", s.path, closeErr)
	}

	s.needsHeader = false
	s.needsNewline = false
	return nil
}

func parseRow(row []string) (model.Student, error) {
	if len(row) != len(Header) {
		return model.Student{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(row))
	}
	student, err := model.ParseStudent(row[0], row[1], row[2], row[3], row[4])
	if err != nil {
		return model.Student{}, err
	}
	// The stored average must be numeric but the value is always recomputed.
	if _, err := model.ParseMark(row[5]); err != nil {
		return model.Student{}, &model.FieldError{Fields: []string{"average"}, Value: row[5], Kind: model.ErrInvalidMark, Err: err}
	}
	return student, nil
}

func encodeRow(s model.Student) []string {
	return []string{
		s.Name,
		s.RegistrationID,
		model.FormatMark(s.Mark1),
		model.FormatMark(s.Mark2),
		model.FormatMark(s.Mark3),
		model.FormatMark(s.Average),
	}
}

func isBlank(row []string) bool {
	for _, col := range row {
		if strings.TrimSpace(col) != "" {
			return false
		}
	}
	return true
}

func isHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, col := range row {
		if !strings.EqualFold(strings.TrimSpace(col), Header[i]) {
			return false
		}
	}
	return true
}
