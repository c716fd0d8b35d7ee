package runners

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/runtime"
)

// RunSQL looks up fn's connection, executes sql_body with named parameters,
// and materializes rows as maps for row-returning statements or
// {rows_affected: N} otherwise, per SPEC_FULL.md §4.6. Whether a statement
// is row-returning is decided by the declared return_shape: a "void" type
// expression commits via Exec and reports rows_affected; any other shape
// queries and materializes rows.
func RunSQL(ctx context.Context, rtCtx *runtime.Context, fn model.SQLFunction, args map[string]any) (any, error) {
	db, ok := rtCtx.Database(fn.Connection)
	if !ok {
		return nil, diag.NewRuntimeError(fn.Name, diag.ErrNoConnection,
			fmt.Sprintf("no database connection named %q", fn.Connection))
	}

	named := namedArgs(args)

	if fn.ReturnShape.TypeExpr == "void" {
		result, err := db.ExecContext(ctx, fn.SQLBody, named...)
		if err != nil {
			return nil, diag.NewRuntimeError(fn.Name, "", fmt.Sprintf("sql error: %v", err))
		}
		affected, _ := result.RowsAffected()
		return map[string]any{"rows_affected": affected}, nil
	}

	rows, err := db.QueryContext(ctx, fn.SQLBody, named...)
	if err != nil {
		return nil, diag.NewRuntimeError(fn.Name, "", fmt.Sprintf("sql error: %v", err))
	}
	defer rows.Close()

	out, err := materializeRows(rows)
	if err != nil {
		return nil, diag.NewRuntimeError(fn.Name, "", fmt.Sprintf("sql row scan error: %v", err))
	}
	return out, nil
}

func namedArgs(args map[string]any) []any {
	out := make([]any, 0, len(args))
	for k, v := range args {
		out = append(out, sql.Named(k, v))
	}
	return out
}

func materializeRows(rows *sql.Rows) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeSQLValue(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalizeSQLValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
