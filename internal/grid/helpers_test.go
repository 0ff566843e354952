package grid

import (
	"github.com/roach88/pulsegrid/internal/cell"
	"github.com/roach88/pulsegrid/internal/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		ID: "projects",
		Columns: []schema.Column{
			{ID: "name", Kind: cell.KindText, Primary: true, Sortable: true},
			{ID: "status", Kind: cell.KindText, Sortable: true},
			{ID: "budget", Kind: cell.KindInt, Sortable: true},
			{ID: "labels", Kind: cell.KindTags, Sortable: true},
			{ID: "notes", Kind: cell.KindText},
		},
	}
}

func rec(id string, pos int64, name string) Record {
	return Record{ID: id, Position: pos, Values: cell.Values{"name": cell.Text(name)}}
}

func abc() []Record {
	return []Record{rec("1", 1, "A"), rec("2", 2, "B"), rec("3", 3, "C")}
}

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = cell.String(r.Value("name"))
	}
	return out
}
