package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Column describes a column added by a migration step.
type Column struct {
	Name string
	Type ColumnType
}

// Copy backfills Dest from Source on rows where Dest is still NULL.
// Expr overrides the copied value and may reference Source; it defaults to Source itself.
type Copy struct {
	Dest   string
	Source string
	Expr   string
}

// Schema exposes the guarded schema operations a migration step runs inside its transaction.
type Schema struct {
	tx      *sqlx.Tx
	dialect Dialect
	logger  *zap.Logger
}

func (s *Schema) Dialect() Dialect { return s.dialect }

// TypeName renders a column type for the current dialect.
func (s *Schema) TypeName(t ColumnType) string { return s.dialect.typeName(t) }

func (s *Schema) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.tx.ExecContext(ctx, s.tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("exec %q: %w", firstLine(query), err)
	}
	return nil
}

func (s *Schema) TableExists(ctx context.Context, table string) (bool, error) {
	q := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if s.dialect == Postgres {
		q = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
	var n int
	if err := s.tx.GetContext(ctx, &n, s.tx.Rebind(q), table); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *Schema) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	q := `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	if s.dialect == Postgres {
		q = `SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`
	}
	var n int
	if err := s.tx.GetContext(ctx, &n, s.tx.Rebind(q), table, column); err != nil {
		return false, fmt.Errorf("check column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

// AddColumns adds every column not already present on table. All added columns are nullable.
func (s *Schema) AddColumns(ctx context.Context, table string, cols ...Column) error {
	for _, c := range cols {
		ok, err := s.ColumnExists(ctx, table, c.Name)
		if err != nil {
			return err
		}
		if ok {
			s.logger.Debug("column already present", zap.String("table", table), zap.String("column", c.Name))
			continue
		}
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(c.Name), s.dialect.typeName(c.Type))
		if err := s.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// CopyWhereUnset runs each backfill as "set Dest only if Dest is NULL", so running it again
// never overwrites a populated destination. A backfill whose source or destination column is
// missing is skipped.
func (s *Schema) CopyWhereUnset(ctx context.Context, table string, copies ...Copy) error {
	for _, c := range copies {
		srcOK, err := s.ColumnExists(ctx, table, c.Source)
		if err != nil {
			return err
		}
		dstOK, err := s.ColumnExists(ctx, table, c.Dest)
		if err != nil {
			return err
		}
		if !srcOK || !dstOK {
			s.logger.Debug("backfill skipped",
				zap.String("table", table), zap.String("dest", c.Dest), zap.String("source", c.Source),
				zap.Bool("source_present", srcOK), zap.Bool("dest_present", dstOK))
			continue
		}
		expr := c.Expr
		if expr == "" {
			expr = quoteIdent(c.Source)
		}
		q := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL", quoteIdent(table), quoteIdent(c.Dest), expr, quoteIdent(c.Dest))
		if err := s.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// DropColumns drops each listed column that still exists and skips the rest.
func (s *Schema) DropColumns(ctx context.Context, table string, columns ...string) error {
	for _, name := range columns {
		ok, err := s.ColumnExists(ctx, table, name)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Debug("column already absent", zap.String("table", table), zap.String("column", name))
			continue
		}
		if err := s.Exec(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteIdent(table), quoteIdent(name))); err != nil {
			return err
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func firstLine(q string) string {
	q = strings.TrimSpace(q)
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		return q[:i]
	}
	return q
}
