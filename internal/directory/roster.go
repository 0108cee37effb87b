// Package directory is the read-only participant lookup collaborator. The
// roster ships as an xlsx workbook maintained by HR tooling, so columns are
// detected from header text rather than fixed positions.
package directory

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Record is one person in the directory.
type Record struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Team    string   `json:"team,omitempty"`
	Role    string   `json:"role,omitempty"`
	History []string `json:"history,omitempty"`
}

// Directory resolves a member ID to an identity record.
type Directory interface {
	Lookup(id string) (*Record, bool)
}

// Roster is an in-memory Directory loaded from a workbook.
type Roster struct {
	records map[string]Record
}

// LoadRoster reads the first sheet of the workbook at path. Column meaning
// is inferred from headers; rows without an ID are skipped quietly.
func LoadRoster(path string) (*Roster, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read roster rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("roster has no data rows")
	}

	idIdx, nameIdx, teamIdx, roleIdx, historyIdx := -1, -1, -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "id"):
			if idIdx == -1 {
				idIdx = i
			}
		case strings.Contains(l, "name"):
			if nameIdx == -1 {
				nameIdx = i
			}
		case strings.Contains(l, "team") || strings.Contains(l, "department"):
			teamIdx = i
		case strings.Contains(l, "role") || strings.Contains(l, "title"):
			roleIdx = i
		case strings.Contains(l, "history") || strings.Contains(l, "notes"):
			historyIdx = i
		}
	}
	if idIdx == -1 || nameIdx == -1 {
		return nil, fmt.Errorf("roster is missing id or name column")
	}

	records := make(map[string]Record)
	for _, row := range rows[1:] {
		rec := Record{}
		if idIdx < len(row) {
			rec.ID = strings.TrimSpace(row[idIdx])
		}
		if rec.ID == "" {
			continue
		}
		if nameIdx < len(row) {
			rec.Name = strings.TrimSpace(row[nameIdx])
		}
		if teamIdx >= 0 && teamIdx < len(row) {
			rec.Team = strings.TrimSpace(row[teamIdx])
		}
		if roleIdx >= 0 && roleIdx < len(row) {
			rec.Role = strings.TrimSpace(row[roleIdx])
		}
		if historyIdx >= 0 && historyIdx < len(row) {
			for _, h := range strings.Split(row[historyIdx], ";") {
				if h = strings.TrimSpace(h); h != "" {
					rec.History = append(rec.History, h)
				}
			}
		}
		records[rec.ID] = rec
	}
	return &Roster{records: records}, nil
}

// Lookup implements Directory.
func (r *Roster) Lookup(id string) (*Record, bool) {
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return &rec, true
}

// Len reports how many members loaded.
func (r *Roster) Len() int { return len(r.records) }
