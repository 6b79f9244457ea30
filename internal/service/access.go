package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/repository"
	"gorm.io/gorm"
)

func caller(ctx context.Context) (*auth.UserContext, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return userCtx, nil
}

func authorize(userCtx *auth.UserContext, action auth.Action, rel auth.Relationship) error {
	if !userCtx.Can(action, rel) {
		return ErrPermissionDenied
	}
	return nil
}

// projectVisible reports whether the caller may read the project. listAll
// names the action that grants access to every project.
func projectVisible(ctx context.Context, projects *repository.ProjectRepository, userCtx *auth.UserContext, projectID uuid.UUID, listAll auth.Action) (bool, error) {
	if userCtx.Can(listAll, auth.RelationNone) {
		return true, nil
	}
	return projects.IsAssigned(ctx, projectID, userCtx.UserID)
}

// validateAssignees checks that referenced users exist
func validateAssignees(ctx context.Context, users *repository.UserRepository, fields map[string]*uuid.UUID) error {
	errs := domain.FieldErrors{}
	for field, id := range fields {
		if id == nil {
			continue
		}
		if _, err := users.GetByID(ctx, *id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				errs[field] = "User not found"
				continue
			}
			return err
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// parseDate parses a YYYY-MM-DD value into a UTC date, recording a field
// error when it is malformed.
func parseDate(field, value string, errs domain.FieldErrors) time.Time {
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		errs[field] = domain.GetValidationMessage("datetime")
		return time.Time{}
	}
	return domain.DateOnly(t)
}

// today is the current UTC calendar date
func today() time.Time {
	return domain.DateOnly(time.Now().UTC())
}
