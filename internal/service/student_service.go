package service

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studentrank/internal/model"
	"studentrank/internal/ranking"
	"studentrank/internal/store"
)

const archiveBatchSize = 1000

// sortColumns lists the columns ListStudents may order by.
var sortColumns = map[string]bool{
	"name":            true,
	"registration_id": true,
	"mark1":           true,
	"mark2":           true,
	"mark3":           true,
	"average":         true,
}

// likeEscaper makes a name filter match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// AddStudentInput holds the raw field values of a new student, as typed.
type AddStudentInput struct {
	Name           string `json:"name"`
	RegistrationID string `json:"registration_id"`
	Mark1          string `json:"mark1"`
	Mark2          string `json:"mark2"`
	Mark3          string `json:"mark3"`
}

// ListQuery filters, sorts and pages the archived roster.
type ListQuery struct {
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
	Name       string
	AverageMin *float64
	AverageMax *float64
}

// StudentService is the single entry point into the roster. It serializes
// callers onto the store and mirrors every new record into the archive.
type StudentService struct {
	mu     sync.Mutex
	store  *store.Store
	db     *gorm.DB
	logger *slog.Logger
}

func NewStudentService(st *store.Store, db *gorm.DB, logger *slog.Logger) *StudentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudentService{store: st, db: db, logger: logger}
}

// AddStudent validates and stores one student. The roster file is
// authoritative: a failed archive write is logged, not returned.
func (s *StudentService) AddStudent(in AddStudentInput) (model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.store.Add(in.Name, in.RegistrationID, in.Mark1, in.Mark2, in.Mark3)
	if err != nil {
		return model.Student{}, err
	}

	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&student).Error; err != nil {
		s.logger.Warn("archive write failed", "registration_id", student.RegistrationID, "error", err)
	}

	s.logger.Info("student added", "registration_id", student.RegistrationID, "average", student.Average)
	return student, nil
}

// Students returns the roster in insertion order.
func (s *StudentService) Students() []model.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// Rankings ranks the current roster.
func (s *StudentService) Rankings() ([]ranking.Entry, error) {
	return ranking.Rank(s.Students())
}

// ChartSeries returns the bar-chart data for the current rankings.
func (s *StudentService) ChartSeries() (ranking.Series, error) {
	entries, err := s.Rankings()
	if err != nil {
		return ranking.Series{}, err
	}
	return ranking.ChartSeries(entries), nil
}

// SyncArchive copies every stored student into the archive. Rows that are
// already there are left alone.
func (s *StudentService) SyncArchive() error {
	students := s.Students()
	if len(students) == 0 {
		return nil
	}

	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&students, archiveBatchSize).Error
	if err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}

	s.logger.Info("archive synced", "students", len(students))
	return nil
}

// ListStudents queries the archive and returns the page, the total match
// count and the number of pages.
func (s *StudentService) ListStudents(q ListQuery) ([]model.Student, int64, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	sortBy := strings.ToLower(q.SortBy)
	if sortBy == "" {
		sortBy = "name"
	}
	if !sortColumns[sortBy] {
		return nil, 0, 0, fmt.Errorf("%w: cannot sort by %q", ErrInvalidQuery, q.SortBy)
	}
	desc := false
	switch strings.ToLower(q.SortOrder) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, 0, 0, fmt.Errorf("%w: sort order must be asc or desc", ErrInvalidQuery)
	}

	dbQuery := s.db.Model(&model.Student{})

	// Apply filters
	if q.Name != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Name)) + "%"
		dbQuery = dbQuery.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	}
	if q.AverageMin != nil {
		dbQuery = dbQuery.Where("average >= ?", *q.AverageMin)
	}
	if q.AverageMax != nil {
		dbQuery = dbQuery.Where("average <= ?", *q.AverageMax)
	}
	// The filtered query is run twice, for the count and for the page.
	dbQuery = dbQuery.Session(&gorm.Session{})

	var totalCount int64
	if err := dbQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("count students: %w", err)
	}

	var students []model.Student
	err := dbQuery.
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: desc}).
		Order("registration_id").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&students).Error
	if err != nil {
		return nil, 0, 0, fmt.Errorf("list students: %w", err)
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(q.Limit)))
	return students, totalCount, totalPages, nil
}
