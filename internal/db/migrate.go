package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Base is the revision of an empty schema, before any step is applied.
const Base = "base"

// Step is one reversible schema change. DependsOn names the step it follows; the first
// step of a ledger depends on nothing.
type Step struct {
	Revision    string
	DependsOn   string
	Description string
	Upgrade     func(ctx context.Context, s *Schema) error
	Downgrade   func(ctx context.Context, s *Schema) error
}

// Ledger is a single linear chain of steps.
type Ledger struct {
	steps []Step
	index map[string]int
}

// NewLedger validates that steps form one chain in the given order.
func NewLedger(steps ...Step) (*Ledger, error) {
	l := &Ledger{steps: steps, index: make(map[string]int, len(steps))}
	for i, st := range steps {
		if st.Revision == "" || st.Revision == Base {
			return nil, fmt.Errorf("step %d: invalid revision %q", i, st.Revision)
		}
		if _, dup := l.index[st.Revision]; dup {
			return nil, fmt.Errorf("duplicate revision %q", st.Revision)
		}
		want := ""
		if i > 0 {
			want = steps[i-1].Revision
		}
		if st.DependsOn != want {
			return nil, fmt.Errorf("step %q depends on %q, expected %q", st.Revision, st.DependsOn, want)
		}
		if st.Upgrade == nil || st.Downgrade == nil {
			return nil, fmt.Errorf("step %q must define upgrade and downgrade", st.Revision)
		}
		l.index[st.Revision] = i
	}
	return l, nil
}

// Head is the revision of the last step, or "" for an empty ledger.
func (l *Ledger) Head() string {
	if len(l.steps) == 0 {
		return ""
	}
	return l.steps[len(l.steps)-1].Revision
}

func (l *Ledger) Steps() []Step { return l.steps }

// Parent returns the revision preceding rev, Base for the first step.
func (l *Ledger) Parent(rev string) (string, error) {
	i, err := l.position(rev)
	if err != nil {
		return "", err
	}
	if i <= 0 {
		return Base, nil
	}
	return l.steps[i-1].Revision, nil
}

// position maps a revision to its chain index; "" and Base map to -1.
func (l *Ledger) position(rev string) (int, error) {
	if rev == "" || rev == Base {
		return -1, nil
	}
	i, ok := l.index[rev]
	if !ok {
		return 0, fmt.Errorf("unknown revision %q", rev)
	}
	return i, nil
}

// Migrator applies a ledger to a store and records the current revision in schema_version.
type Migrator struct {
	db      *sqlx.DB
	dialect Dialect
	ledger  *Ledger
	logger  *zap.Logger
}

func NewMigrator(db *sqlx.DB, dialect Dialect, ledger *Ledger, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, dialect: dialect, ledger: ledger, logger: logger}
}

// RunMigrations brings the readings store up to the head of its ledger.
func RunMigrations(ctx context.Context, db *sqlx.DB, dialect Dialect, logger *zap.Logger) error {
	return NewMigrator(db, dialect, ReadingsLedger(), logger).Upgrade(ctx, "")
}

func (m *Migrator) Ledger() *Ledger { return m.ledger }

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (revision TEXT NOT NULL)`)
	if err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	return nil
}

// Current returns the applied revision, Base when nothing is applied.
func (m *Migrator) Current(ctx context.Context) (string, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return "", err
	}
	var rev string
	err := m.db.GetContext(ctx, &rev, `SELECT revision FROM schema_version LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return Base, nil
	}
	if err != nil {
		return "", fmt.Errorf("read schema_version: %w", err)
	}
	return rev, nil
}

// StepStatus reports whether a ledger step is applied.
type StepStatus struct {
	Step    Step
	Applied bool
	Current bool
}

func (m *Migrator) Status(ctx context.Context) ([]StepStatus, error) {
	cur, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	pos, err := m.ledger.position(cur)
	if err != nil {
		return nil, err
	}
	out := make([]StepStatus, 0, len(m.ledger.steps))
	for i, st := range m.ledger.steps {
		out = append(out, StepStatus{Step: st, Applied: i <= pos, Current: i == pos})
	}
	return out, nil
}

// Upgrade applies steps forward until target ("" or "head" means the ledger head).
func (m *Migrator) Upgrade(ctx context.Context, target string) error {
	if target == "" || target == "head" {
		target = m.ledger.Head()
	}
	cur, err := m.Current(ctx)
	if err != nil {
		return err
	}
	from, err := m.ledger.position(cur)
	if err != nil {
		return err
	}
	to, err := m.ledger.position(target)
	if err != nil {
		return err
	}
	if to < from {
		return fmt.Errorf("target %q is behind current revision %q", target, cur)
	}
	for i := from + 1; i <= to; i++ {
		st := m.ledger.steps[i]
		m.logger.Info("applying migration", zap.String("revision", st.Revision), zap.String("direction", "upgrade"))
		if err := m.apply(ctx, st.Upgrade, st.Revision); err != nil {
			return fmt.Errorf("upgrade %s: %w", st.Revision, err)
		}
	}
	return nil
}

// Downgrade reverts steps until target is the current revision (Base reverts everything).
func (m *Migrator) Downgrade(ctx context.Context, target string) error {
	if target == "" {
		target = Base
	}
	cur, err := m.Current(ctx)
	if err != nil {
		return err
	}
	from, err := m.ledger.position(cur)
	if err != nil {
		return err
	}
	to, err := m.ledger.position(target)
	if err != nil {
		return err
	}
	if to > from {
		return fmt.Errorf("target %q is ahead of current revision %q", target, cur)
	}
	for i := from; i > to; i-- {
		st := m.ledger.steps[i]
		parent := st.DependsOn
		if parent == "" {
			parent = Base
		}
		m.logger.Info("applying migration", zap.String("revision", st.Revision), zap.String("direction", "downgrade"))
		if err := m.apply(ctx, st.Downgrade, parent); err != nil {
			return fmt.Errorf("downgrade %s: %w", st.Revision, err)
		}
	}
	return nil
}

// apply runs fn and records rev in one transaction, so a step is either fully applied or not at all.
func (m *Migrator) apply(ctx context.Context, fn func(context.Context, *Schema) error, rev string) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &Schema{tx: tx, dialect: m.dialect, logger: m.logger}); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
		return err
	}
	if rev != Base {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_version (revision) VALUES (?)`), rev); err != nil {
			return err
		}
	}
	return tx.Commit()
}
