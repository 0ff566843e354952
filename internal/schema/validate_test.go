package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/cell"
)

func validSchema() *Schema {
	return &Schema{
		ID:   "projects",
		Name: "Projects",
		Columns: []Column{
			{ID: "name", Name: "Name", Kind: cell.KindText, Primary: true, Sortable: true},
			{ID: "status", Name: "Status", Kind: cell.KindText, Sortable: true},
			{ID: "labels", Name: "Labels", Kind: cell.KindTags, Sortable: true},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidSchema(t *testing.T) {
	assert.Empty(t, Validate(validSchema()))
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schema)
		want   []string
	}{
		{
			name:   "bad table id",
			mutate: func(s *Schema) { s.ID = "has space" },
			want:   []string{ErrTableIDInvalid},
		},
		{
			name:   "no columns",
			mutate: func(s *Schema) { s.Columns = nil },
			want:   []string{ErrNoColumns},
		},
		{
			name:   "duplicate column",
			mutate: func(s *Schema) { s.Columns[2].ID = "status" },
			want:   []string{ErrDuplicateColumn},
		},
		{
			name:   "reserved id",
			mutate: func(s *Schema) { s.Columns[1].ID = "position" },
			want:   []string{ErrReservedColumn},
		},
		{
			name:   "reserved id is case-insensitive",
			mutate: func(s *Schema) { s.Columns[1].ID = "ID" },
			want:   []string{ErrReservedColumn},
		},
		{
			name:   "no primary",
			mutate: func(s *Schema) { s.Columns[0].Primary = false },
			want:   []string{ErrPrimaryCount},
		},
		{
			name:   "two primaries",
			mutate: func(s *Schema) { s.Columns[1].Primary = true },
			want:   []string{ErrPrimaryCount},
		},
		{
			name:   "hidden primary",
			mutate: func(s *Schema) { s.Columns[0].Hidden = true },
			want:   []string{ErrPrimaryHidden},
		},
		{
			name:   "unknown kind",
			mutate: func(s *Schema) { s.Columns[1].Kind = "float" },
			want:   []string{ErrInvalidColumnKind},
		},
		{
			name:   "negative width",
			mutate: func(s *Schema) { s.Columns[1].Width = -1 },
			want:   []string{ErrInvalidWidth},
		},
		{
			name:   "bad column id",
			mutate: func(s *Schema) { s.Columns[1].ID = "" },
			want:   []string{ErrColumnIDInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchema()
			tt.mutate(s)
			assert.Equal(t, tt.want, codes(Validate(s)))
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := validSchema()
	s.Columns[0].Primary = false
	s.Columns[1].ID = "id"
	s.Columns[2].Kind = "date"

	errs := Validate(s)
	assert.Equal(t, []string{ErrReservedColumn, ErrInvalidColumnKind, ErrPrimaryCount}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "columns[1].id", Message: "duplicate", Code: ErrDuplicateColumn}
	assert.Equal(t, "[E204] columns[1].id: duplicate", err.Error())

	err.Line = 7
	assert.Equal(t, "[E204] line 7: columns[1].id: duplicate", err.Error())
}

func TestSchemaWidthAndVisibility(t *testing.T) {
	s := validSchema()

	require.NoError(t, s.SetWidth("status", 240))
	col, ok := s.Column("status")
	require.True(t, ok)
	assert.Equal(t, 240, col.Width)

	assert.Error(t, s.SetWidth("status", 0))
	assert.Error(t, s.SetWidth("missing", 10))

	require.NoError(t, s.SetHidden("status", true))
	assert.Len(t, s.Visible(), 2)

	assert.Error(t, s.SetHidden("name", true), "primary cannot be hidden")
	require.NoError(t, s.SetHidden("name", false))
	assert.Error(t, s.SetHidden("missing", true))
}

func TestSchemaCloneIsIndependent(t *testing.T) {
	s := validSchema()
	cp := s.Clone()
	require.NoError(t, cp.SetWidth("name", 300))

	orig, _ := s.Column("name")
	assert.Equal(t, 0, orig.Width)
}

func TestSchemaPrimary(t *testing.T) {
	s := validSchema()
	p, ok := s.Primary()
	require.True(t, ok)
	assert.Equal(t, "name", p.ID)

	s.Columns[0].Primary = false
	_, ok = s.Primary()
	assert.False(t, ok)
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	s := &Schema{ID: "t", Columns: []Column{{ID: "title", Primary: true}}}
	require.NoError(t, s.Normalize())
	assert.Equal(t, cell.KindText, s.Columns[0].Kind)
	assert.Equal(t, DefaultWidth, s.Columns[0].Width)
	assert.Equal(t, "title", s.Columns[0].Name)

	bad := &Schema{ID: "t", Columns: []Column{{ID: "title"}}}
	err := bad.Normalize()
	require.Error(t, err)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ErrPrimaryCount, verr.Code)
}
