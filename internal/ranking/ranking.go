// Package ranking orders students by average mark and shapes the result for
// display and charting.
package ranking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"studentrank/internal/model"
)

// ErrEmptyStore is returned when there is nothing to rank.
var ErrEmptyStore = errors.New("ranking: no students to rank")

// Entry is a student at a 1-based position. Positions are never shared:
// tied averages get consecutive ranks in input order.
type Entry struct {
	Rank int `json:"rank"`
	model.Student
}

// String renders the entry the way the ranking notice shows it.
func (e Entry) String() string {
	return fmt.Sprintf("Rank %d: %s (Reg No: %s), Average: %.2f", e.Rank, e.Name, e.RegistrationID, e.Average)
}

// Rank returns the students sorted by average, highest first. The sort is
// stable, so equal averages keep their input order. The input slice is not
// modified.
func Rank(students []model.Student) ([]Entry, error) {
	if len(students) == 0 {
		return nil, ErrEmptyStore
	}

	sorted := make([]model.Student, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Average > sorted[j].Average
	})

	entries := make([]Entry, len(sorted))
	for i, s := range sorted {
		entries[i] = Entry{Rank: i + 1, Student: s}
	}
	return entries, nil
}

// Format renders ranked entries as the plain-text ranking notice.
func Format(entries []Entry) string {
	var b strings.Builder
	b.WriteString("Student Rankings:\n")
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Series is the data behind the rankings bar chart.
type Series struct {
	Title      string    `json:"title"`
	XLabel     string    `json:"x_label"`
	YLabel     string    `json:"y_label"`
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
}

// ChartSeries maps ranked entries to bar categories (names) and values
// (averages), keeping the ranked order.
func ChartSeries(entries []Entry) Series {
	s := Series{
		Title:      "Student Rankings Based on Average Marks",
		XLabel:     "Student Name",
		YLabel:     "Average Marks",
		Categories: make([]string, 0, len(entries)),
		Values:     make([]float64, 0, len(entries)),
	}
	for _, e := range entries {
		s.Categories = append(s.Categories, e.Name)
		s.Values = append(s.Values, e.Average)
	}
	return s
}
