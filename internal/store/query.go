package store

import (
	"fmt"
	"strings"

	"github.com/natvps/panel/pkg/audit"
)

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// next returns the placeholder for an argument appended after the conditions.
func (w *where) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func filterWhere(f audit.Filter) *where {
	w := &where{}
	if f.UserID != nil {
		w.add("((actor_type = ? AND actor_id = ?) OR (subject_type = ? AND subject_id = ?))",
			string(audit.KindUser), *f.UserID, string(audit.KindUser), *f.UserID)
	}
	if f.Action != "" {
		w.add("action = ?", f.Action)
	}
	if f.From != nil {
		w.add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= ?", *f.To)
	}
	if f.Before != nil {
		w.add("created_at < ?", *f.Before)
	}
	return w
}

// listQuery builds the SELECT for ListParams in created_at DESC, id DESC order.
func listQuery(params audit.ListParams) (string, []any) {
	w := filterWhere(params.Filter)
	if c := params.After; c != nil {
		w.add("(created_at, id) < (?, ?)", c.CreatedAt, c.ID)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + auditColumns + ` FROM audit_logs`)
	b.WriteString(w.String())
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if params.Limit > 0 {
		b.WriteString(" LIMIT " + w.next(params.Limit))
	}
	if params.After == nil && params.Offset > 0 {
		b.WriteString(" OFFSET " + w.next(params.Offset))
	}
	return b.String(), w.args
}
