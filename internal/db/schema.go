package db

import "gorm.io/gorm"

// EnsureSchema creates a Postgres schema if needed. Other dialects have no
// schemas and are left alone.
func EnsureSchema(d *gorm.DB, schema string) error {
	if d.Dialector.Name() != "postgres" {
		return nil
	}
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}

// QualifiedTable prefixes table with schema on dialects that support it.
func QualifiedTable(d *gorm.DB, schema, table string) string {
	if d.Dialector.Name() != "postgres" {
		return table
	}
	return schema + "." + table
}
