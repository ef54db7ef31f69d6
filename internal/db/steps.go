package db

import (
	"context"
	"fmt"
)

const (
	RevisionInitial        = "0001_create_users_and_readings"
	RevisionReadingColumns = "0002_update_readings_columns"
	RevisionHealthMetrics  = "0003_add_health_metrics"
	RevisionReadingsIndex  = "0004_index_readings_owner_created"
)

// ReadingsLedger is the schema history of the users and readings tables.
func ReadingsLedger() *Ledger {
	l, err := NewLedger(
		Step{
			Revision:    RevisionInitial,
			Description: "create users and legacy readings tables",
			Upgrade:     createInitialTables,
			Downgrade:   dropInitialTables,
		},
		Step{
			Revision:    RevisionReadingColumns,
			DependsOn:   RevisionInitial,
			Description: "move readings from value/type/remarks/timestamp to value_ng_ml/reading_type/notes/created_at",
			Upgrade:     upgradeReadingColumns,
			Downgrade:   downgradeReadingColumns,
		},
		Step{
			Revision:    RevisionHealthMetrics,
			DependsOn:   RevisionReadingColumns,
			Description: "add optional health metrics to readings",
			Upgrade:     addHealthMetrics,
			Downgrade:   dropHealthMetrics,
		},
		Step{
			Revision:    RevisionReadingsIndex,
			DependsOn:   RevisionHealthMetrics,
			Description: "index readings by owner and creation time",
			Upgrade: func(ctx context.Context, s *Schema) error {
				return s.Exec(ctx, `CREATE INDEX IF NOT EXISTS ix_readings_user_created ON readings (user_id, created_at)`)
			},
			Downgrade: func(ctx context.Context, s *Schema) error {
				return s.Exec(ctx, `DROP INDEX IF EXISTS ix_readings_user_created`)
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return l
}

func createInitialTables(ctx context.Context, s *Schema) error {
	pk := s.Dialect().serialPrimaryKey()
	ts := s.TypeName(Timestamp)
	users := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
    id %s,
    email TEXT NOT NULL UNIQUE,
    full_name TEXT,
    hashed_password TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'regular',
    created_at %s NOT NULL
)`, pk, ts)
	if err := s.Exec(ctx, users); err != nil {
		return err
	}
	readings := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS readings (
    id %s,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    "value" INTEGER NOT NULL,
    "source" TEXT,
    "type" TEXT NOT NULL,
    "remarks" TEXT,
    "timestamp" %s NOT NULL
)`, pk, ts)
	return s.Exec(ctx, readings)
}

func dropInitialTables(ctx context.Context, s *Schema) error {
	if err := s.Exec(ctx, `DROP TABLE IF EXISTS readings`); err != nil {
		return err
	}
	return s.Exec(ctx, `DROP TABLE IF EXISTS users`)
}

// Legacy type values outside the reading_type enumeration are backfilled as random.
const readingTypeFromLegacy = `CASE WHEN "type" IN ('fasting', 'random', 'pp') THEN "type" ELSE 'random' END`

func upgradeReadingColumns(ctx context.Context, s *Schema) error {
	err := s.AddColumns(ctx, "readings",
		Column{Name: "value_ng_ml", Type: Integer},
		Column{Name: "reading_type", Type: Text},
		Column{Name: "notes", Type: Text},
		Column{Name: "created_at", Type: Timestamp},
	)
	if err != nil {
		return err
	}
	err = s.CopyWhereUnset(ctx, "readings",
		Copy{Dest: "value_ng_ml", Source: "value"},
		Copy{Dest: "reading_type", Source: "type", Expr: readingTypeFromLegacy},
		Copy{Dest: "notes", Source: "remarks"},
		Copy{Dest: "created_at", Source: "timestamp"},
	)
	if err != nil {
		return err
	}
	return s.DropColumns(ctx, "readings", "value", "source", "type", "remarks", "timestamp")
}

func downgradeReadingColumns(ctx context.Context, s *Schema) error {
	err := s.AddColumns(ctx, "readings",
		Column{Name: "value", Type: Integer},
		Column{Name: "source", Type: Text},
		Column{Name: "type", Type: Text},
		Column{Name: "remarks", Type: Text},
		Column{Name: "timestamp", Type: Timestamp},
	)
	if err != nil {
		return err
	}
	err = s.CopyWhereUnset(ctx, "readings",
		Copy{Dest: "value", Source: "value_ng_ml"},
		Copy{Dest: "type", Source: "reading_type"},
		Copy{Dest: "remarks", Source: "notes"},
		Copy{Dest: "timestamp", Source: "created_at"},
	)
	if err != nil {
		return err
	}
	return s.DropColumns(ctx, "readings", "value_ng_ml", "reading_type", "notes", "created_at")
}

var healthMetricColumns = []Column{
	{Name: "step_count", Type: Integer},
	{Name: "sleep_hours", Type: Float},
	{Name: "calorie_count", Type: Integer},
	{Name: "protein_intake_g", Type: Float},
	{Name: "carb_intake_g", Type: Float},
	{Name: "exercise_minutes", Type: Integer},
}

func addHealthMetrics(ctx context.Context, s *Schema) error {
	return s.AddColumns(ctx, "readings", healthMetricColumns...)
}

func dropHealthMetrics(ctx context.Context, s *Schema) error {
	names := make([]string, 0, len(healthMetricColumns))
	for i := len(healthMetricColumns) - 1; i >= 0; i-- {
		names = append(names, healthMetricColumns[i].Name)
	}
	return s.DropColumns(ctx, "readings", names...)
}
