package model

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/appgrid-io/appgrid/core/storage"
)

// TableResolver maps registered entity names onto same-named SQL tables and
// runs their CRUD through the shared executor. Names not registered at
// construction resolve to nil, which also keeps arbitrary strings out of
// query text.
type TableResolver struct {
	exec   *storage.Executor
	tables map[string]struct{}
}

func NewTableResolver(exec *storage.Executor, names ...string) *TableResolver {
	tables := make(map[string]struct{}, len(names))
	for _, name := range names {
		tables[name] = struct{}{}
	}
	return &TableResolver{exec: exec, tables: tables}
}

func (r *TableResolver) Resolve(name, tenantID string) Accessor {
	if r == nil {
		return nil
	}
	if _, ok := r.tables[name]; !ok {
		return nil
	}
	return &tableAccessor{exec: r.exec, table: name, tenant: tenantID}
}

type tableAccessor struct {
	exec   *storage.Executor
	table  string
	tenant string
}

func (a *tableAccessor) Find(ctx context.Context, filter map[string]any) (storage.Rows, error) {
	text := fmt.Sprintf("SELECT * FROM `%s`", a.table)
	pred, values := storage.Conditions(filter)
	if pred != "" {
		text += " WHERE " + pred
	}
	rows, _, err := a.exec.Query(ctx, a.tenant, text, values)
	return rows, err
}

func (a *tableAccessor) Create(ctx context.Context, item map[string]any) error {
	if len(item) == 0 {
		return fmt.Errorf("empty item")
	}
	cols := make([]string, 0, len(item))
	for col := range item {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	values := make([]any, 0, len(cols))
	quoted := make([]string, 0, len(cols))
	marks := make([]string, 0, len(cols))
	for _, col := range cols {
		quoted = append(quoted, "`"+col+"`")
		marks = append(marks, "?")
		values = append(values, item[col])
	}
	text := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)",
		a.table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	_, _, err := a.exec.Query(ctx, a.tenant, text, values)
	return err
}

func (a *tableAccessor) Update(ctx context.Context, filter, changes map[string]any) error {
	if len(changes) == 0 {
		return fmt.Errorf("empty changes")
	}
	if len(filter) == 0 {
		return fmt.Errorf("empty filter")
	}
	cols := make([]string, 0, len(changes))
	for col := range changes {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	values := make([]any, 0, len(cols))
	for _, col := range cols {
		sets = append(sets, "`"+col+"` = ?")
		values = append(values, changes[col])
	}
	pred, whereValues := storage.Conditions(filter)
	text := fmt.Sprintf("UPDATE `%s` SET %s WHERE %s", a.table, strings.Join(sets, ", "), pred)
	_, _, err := a.exec.Query(ctx, a.tenant, text, append(values, whereValues...))
	return err
}

func (a *tableAccessor) Delete(ctx context.Context, filter map[string]any) error {
	if len(filter) == 0 {
		return fmt.Errorf("empty filter")
	}
	pred, values := storage.Conditions(filter)
	text := fmt.Sprintf("DELETE FROM `%s` WHERE %s", a.table, pred)
	_, _, err := a.exec.Query(ctx, a.tenant, text, values)
	return err
}
