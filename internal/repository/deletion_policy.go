package repository

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OnDelete is what happens to a referencing row when its referent is deleted
type OnDelete string

const (
	OnDeleteCascade OnDelete = "CASCADE"
	OnDeleteSetNull OnDelete = "SET NULL"
)

// ReferenceRule describes one foreign key and its delete behavior
type ReferenceRule struct {
	Table           string
	Column          string
	ReferencedTable string
	OnDelete        OnDelete
}

// DeletionPolicy is the single declaration of delete behavior for every
// reference in the schema. The migrations carry the same ON DELETE clauses.
var DeletionPolicy = []ReferenceRule{
	{Table: "projects", Column: "manager_id", ReferencedTable: "users", OnDelete: OnDeleteSetNull},
	{Table: "project_statuses", Column: "project_id", ReferencedTable: "projects", OnDelete: OnDeleteCascade},
	{Table: "project_statuses", Column: "created_by_id", ReferencedTable: "users", OnDelete: OnDeleteSetNull},
	{Table: "responsibilities", Column: "project_status_id", ReferencedTable: "project_statuses", OnDelete: OnDeleteCascade},
	{Table: "responsibilities", Column: "responsible_id", ReferencedTable: "users", OnDelete: OnDeleteSetNull},
	{Table: "responsibilities", Column: "deputy_id", ReferencedTable: "users", OnDelete: OnDeleteSetNull},
	{Table: "escalations", Column: "responsibility_id", ReferencedTable: "responsibilities", OnDelete: OnDeleteCascade},
	{Table: "escalations", Column: "created_by_id", ReferencedTable: "users", OnDelete: OnDeleteCascade},
	{Table: "escalations", Column: "resolved_by_id", ReferencedTable: "users", OnDelete: OnDeleteSetNull},
	{Table: "notifications", Column: "user_id", ReferencedTable: "users", OnDelete: OnDeleteCascade},
	{Table: "password_reset_tokens", Column: "user_id", ReferencedTable: "users", OnDelete: OnDeleteCascade},
}

// RulesReferencing returns the rules whose referent is table
func RulesReferencing(table string) []ReferenceRule {
	var rules []ReferenceRule
	for _, rule := range DeletionPolicy {
		if rule.ReferencedTable == table {
			rules = append(rules, rule)
		}
	}
	return rules
}

// DeleteWithPolicy deletes the rows of table with the given ids. Referencing
// rows are nulled out or deleted first, recursively, according to DeletionPolicy.
func DeleteWithPolicy(tx *gorm.DB, table string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	for _, rule := range RulesReferencing(table) {
		switch rule.OnDelete {
		case OnDeleteSetNull:
			stmt := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s IN ?", rule.Table, rule.Column, rule.Column)
			if err := tx.Exec(stmt, ids).Error; err != nil {
				return fmt.Errorf("failed to clear %s.%s: %w", rule.Table, rule.Column, err)
			}
		case OnDeleteCascade:
			var childIDs []uuid.UUID
			if err := tx.Table(rule.Table).Where(rule.Column+" IN ?", ids).Pluck("id", &childIDs).Error; err != nil {
				return fmt.Errorf("failed to load %s referencing %s: %w", rule.Table, table, err)
			}
			if err := DeleteWithPolicy(tx, rule.Table, childIDs); err != nil {
				return err
			}
		}
	}

	if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id IN ?", table), ids).Error; err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
