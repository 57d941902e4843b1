package query

import (
	"fmt"
	"strings"
)

// Builder accumulates AND-ed conditions with positional ($n) arguments.
type Builder struct {
	conds []string
	args  []any
}

// Arg registers a value and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *Builder) Cond(cond string) *Builder {
	b.conds = append(b.conds, cond)
	return b
}

func (b *Builder) Eq(column string, v any) *Builder {
	return b.Cond(fmt.Sprintf("%s = %s", column, b.Arg(v)))
}

func (b *Builder) EqIf(ok bool, column string, v any) *Builder {
	if !ok {
		return b
	}
	return b.Eq(column, v)
}

func (b *Builder) Bool(column string, v *bool) *Builder {
	if v == nil {
		return b
	}
	return b.Eq(column, *v)
}

// Range adds inclusive bounds on a DATE column.
func (b *Builder) Range(column string, r DateRange) *Builder {
	if r.From != nil {
		b.Cond(fmt.Sprintf("%s >= %s", column, b.Arg(r.From.Time)))
	}
	if r.To != nil {
		b.Cond(fmt.Sprintf("%s <= %s", column, b.Arg(r.To.Time)))
	}
	return b
}

// Search matches term case-insensitively against any of the columns.
func (b *Builder) Search(term string, columns ...string) *Builder {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return b
	}
	placeholder := b.Arg("%" + escapeLike(term) + "%")
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s ILIKE %s", col, placeholder))
	}
	return b.Cond("(" + strings.Join(parts, " OR ") + ")")
}

func (b *Builder) Where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// Paging renders LIMIT/OFFSET; empty for an unbounded page.
func (b *Builder) Paging(p Page) string {
	if p.Unbounded() {
		return ""
	}
	return fmt.Sprintf(" LIMIT %s OFFSET %s", b.Arg(p.Size), b.Arg(p.Offset()))
}

func (b *Builder) Args() []any {
	return b.args
}

// OrderBy maps a whitelisted sort field to its column. Unknown fields fall
// back to the first entry of fallback. tiebreak keeps paging stable.
func OrderBy(s Sort, columns map[string]string, fallback string, tiebreak string) string {
	column, ok := columns[s.Field]
	if !ok {
		column = fallback
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	clause := fmt.Sprintf(" ORDER BY %s %s", column, dir)
	if tiebreak != "" && tiebreak != column {
		clause += ", " + tiebreak + " " + dir
	}
	return clause
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
