package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const documentRunsTable = "document_runs"

var (
	// DocumentRunsColumns holds the columns for the "document_runs" table.
	DocumentRunsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "run_id", Type: field.TypeString, Size: 36},
		{Name: "locator", Type: field.TypeString, Size: 2048},
		{Name: "content_hash", Type: field.TypeString, Size: 64},
		{Name: "subject_id", Type: field.TypeString, Size: 255},
		{Name: "category", Type: field.TypeString, Nullable: true, Size: 32},
		{Name: "status", Type: field.TypeString, Size: 16},
		{Name: "resources", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "error_message", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
	}
	// DocumentRunsTable holds the schema information for the "document_runs" table.
	DocumentRunsTable = &schema.Table{
		Name:       documentRunsTable,
		Columns:    DocumentRunsColumns,
		PrimaryKey: []*schema.Column{DocumentRunsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "documentrun_run_id", Unique: false, Columns: []*schema.Column{DocumentRunsColumns[1]}},
			{Name: "documentrun_content_hash_status", Unique: false, Columns: []*schema.Column{DocumentRunsColumns[3], DocumentRunsColumns[6]}},
		},
	}
)

// Migrate creates or extends the ledger tables. It never drops columns.
func Migrate(ctx context.Context, db *DB) error {
	m, err := schema.NewMigrate(db.drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, DocumentRunsTable); err != nil {
		return fmt.Errorf("migrate %s: %w", documentRunsTable, err)
	}
	return nil
}
