package repository

import (
	"context"
	"strings"

	"github.com/straye-as/status-api/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause maps an API sort field to a whitelisted column and
// falls back to defaultColumn for unknown fields.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// normalizePage clamps page and page size to sane bounds and returns the offset
func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// assignedProjectIDs selects the projects where userID is responsible or
// deputy on at least one responsibility of any snapshot.
func assignedProjectIDs(db *gorm.DB, userID interface{}) *gorm.DB {
	return db.Table("project_statuses").
		Select("project_statuses.project_id").
		Joins("JOIN responsibilities ON responsibilities.project_status_id = project_statuses.id").
		Where("responsibilities.responsible_id = ? OR responsibilities.deputy_id = ?", userID, userID)
}

// ApplyProjectVisibility restricts a query keyed by project id to what the
// caller in ctx may see. Managers see everything; everyone else sees projects
// they are assigned to. Without a caller the query matches nothing.
func ApplyProjectVisibility(ctx context.Context, query *gorm.DB, column string) *gorm.DB {
	return ApplyVisibility(ctx, query, column, auth.ActionProjectListAll)
}

// ApplyVisibility is ApplyProjectVisibility with the unrestricted action
// given explicitly.
func ApplyVisibility(ctx context.Context, query *gorm.DB, column string, listAll auth.Action) *gorm.DB {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return query.Where("1 = 0")
	}
	if user.Can(listAll, auth.RelationNone) {
		return query
	}
	return query.Where(column+" IN (?)", assignedProjectIDs(query.Session(&gorm.Session{NewDB: true}), user.UserID))
}
