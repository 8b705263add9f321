package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"studentrank/internal/model"
	"studentrank/internal/ranking"
	"studentrank/internal/service"
)

// StudentService is what the student endpoints need from the service layer.
type StudentService interface {
	AddStudent(in service.AddStudentInput) (model.Student, error)
	ListStudents(q service.ListQuery) ([]model.Student, int64, int, error)
	Rankings() ([]ranking.Entry, error)
	ChartSeries() (ranking.Series, error)
}

type StudentHandler struct {
	studentService StudentService
}

func NewStudentHandler(studentService StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

// AddStudent creates a student from raw text fields, as typed into a form.
func (h *StudentHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var in service.AddStudentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	student, err := h.studentService.AddStudent(in)
	if err != nil {
		writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, student)
}

func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit < 1 {
		limit = 10
	}

	q := service.ListQuery{
		Page:      page,
		Limit:     limit,
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
		Name:      query.Get("name"),
	}

	var err error
	if q.AverageMin, err = floatParam(query.Get("average_min")); err != nil {
		http.Error(w, "average_min must be a number", http.StatusBadRequest)
		return
	}
	if q.AverageMax, err = floatParam(query.Get("average_max")); err != nil {
		http.Error(w, "average_max must be a number", http.StatusBadRequest)
		return
	}

	students, totalCount, totalPages, err := h.studentService.ListStudents(q)
	if err != nil {
		writeError(w, err, "")
		return
	}

	response := map[string]interface{}{
		"data":       students,
		"page":       page,
		"limit":      limit,
		"total":      totalCount,
		"totalPages": totalPages,
	}
	writeJSON(w, http.StatusOK, response)
}

// Rankings returns the ranked roster as JSON, or as the plain-text notice
// with ?format=text.
func (h *StudentHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.studentService.Rankings()
	if err != nil {
		writeError(w, err, "No students to rank")
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(ranking.Format(entries)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  entries,
		"total": len(entries),
	})
}

// Chart returns the bar-chart series for the current rankings.
func (h *StudentHandler) Chart(w http.ResponseWriter, r *http.Request) {
	series, err := h.studentService.ChartSeries()
	if err != nil {
		writeError(w, err, "No students to plot")
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func floatParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
