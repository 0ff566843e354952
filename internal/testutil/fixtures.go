package testutil

import (
	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/schema"
)

// ProjectsSchema is a small schema covering every column kind.
func ProjectsSchema() *schema.Schema {
	return &schema.Schema{
		ID:   "projects",
		Name: "Projects",
		Columns: []schema.Column{
			{ID: "name", Name: "Name", Kind: cell.KindText, Primary: true, Sortable: true, Width: 200},
			{ID: "status", Name: "Status", Kind: cell.KindText, Sortable: true, Width: 120},
			{ID: "budget", Name: "Budget", Kind: cell.KindInt, Sortable: true, Width: 100},
			{ID: "done", Name: "Done", Kind: cell.KindBool, Width: 60},
			{ID: "labels", Name: "Labels", Kind: cell.KindTags, Sortable: true, Width: 160},
			{ID: "notes", Name: "Notes", Kind: cell.KindText, Width: 240},
		},
	}
}

// ABCRecords returns three records A, B, C at positions 1, 2, 3 with ids
// "1", "2", "3".
func ABCRecords() []grid.Record {
	return []grid.Record{
		{ID: "1", Position: 1, Values: cell.Values{"name": cell.Text("A"), "status": cell.Text("open"), "budget": cell.Int(300), "labels": cell.Tags{"beta", "zeta"}}},
		{ID: "2", Position: 2, Values: cell.Values{"name": cell.Text("B"), "status": cell.Text("closed"), "budget": cell.Int(100), "labels": cell.Tags{"alpha"}}},
		{ID: "3", Position: 3, Values: cell.Values{"name": cell.Text("C"), "status": cell.Text("open"), "budget": cell.Int(200), "labels": cell.Tags{}}},
	}
}

// Names returns the "name" column of records as plain strings.
func Names(records []grid.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = cell.String(r.Value("name"))
	}
	return out
}
