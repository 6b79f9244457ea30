package mapper

import (
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/repository"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// ToUserSummaryDTO converts a user reference, returning nil for a missing user
func ToUserSummaryDTO(user *domain.User) *domain.UserSummaryDTO {
	if user == nil {
		return nil
	}
	return &domain.UserSummaryDTO{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.DisplayName(),
		Email:    user.Email,
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Phone:      user.Phone,
		Department: user.Department,
		Role:       user.Role,
		RoleLabel:  user.Role.Label(),
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt.UTC().Format(timestampLayout),
	}
}

// ToProjectDTO converts Project to ProjectDTO
func ToProjectDTO(project *domain.Project) domain.ProjectDTO {
	return domain.ProjectDTO{
		ID:           project.ID,
		Code:         project.Code,
		Name:         project.Name,
		Description:  project.Description,
		Manager:      ToUserSummaryDTO(project.Manager),
		StartDate:    project.StartDate.Format(domain.DateLayout),
		EndDate:      project.EndDate.Format(domain.DateLayout),
		CurrentPhase: project.CurrentPhase,
		PhaseLabel:   project.CurrentPhase.Label(),
		Progress:     project.Progress(),
		CreatedAt:    project.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:    project.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToProjectStatusDTO converts a snapshot with its responsibilities
func ToProjectStatusDTO(status *domain.ProjectStatus) domain.ProjectStatusDTO {
	dto := domain.ProjectStatusDTO{
		ID:               status.ID,
		ProjectID:        status.ProjectID,
		StatusDate:       status.StatusDate.Format(domain.DateLayout),
		Phase:            status.Phase,
		IsBaseline:       status.IsBaseline,
		IsFinal:          status.IsFinal,
		CreatedBy:        ToUserSummaryDTO(status.CreatedBy),
		Notes:            status.Notes,
		Responsibilities: make([]domain.ResponsibilityDTO, 0, len(status.Responsibilities)),
		CreatedAt:        status.CreatedAt.UTC().Format(timestampLayout),
	}
	if status.Project != nil {
		dto.ProjectCode = status.Project.Code
		dto.ProjectName = status.Project.Name
	}
	for i := range status.Responsibilities {
		dto.Responsibilities = append(dto.Responsibilities, ToResponsibilityDTO(&status.Responsibilities[i]))
	}
	return dto
}

// ToResponsibilityDTO converts Responsibility to ResponsibilityDTO
func ToResponsibilityDTO(resp *domain.Responsibility) domain.ResponsibilityDTO {
	return domain.ResponsibilityDTO{
		ID:              resp.ID,
		ProjectStatusID: resp.ProjectStatusID,
		Title:           resp.Title,
		Status:          resp.Status,
		StatusLabel:     resp.Status.Label(),
		NeedsEscalation: resp.NeedsEscalation,
		Progress:        resp.Progress,
		Responsible:     ToUserSummaryDTO(resp.Responsible),
		Deputy:          ToUserSummaryDTO(resp.Deputy),
		Comments:        resp.Comments,
		UpdatedAt:       resp.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToEscalationDTO converts Escalation to EscalationDTO
func ToEscalationDTO(escalation *domain.Escalation) domain.EscalationDTO {
	dto := domain.EscalationDTO{
		ID:               escalation.ID,
		ResponsibilityID: escalation.ResponsibilityID,
		Reason:           escalation.Reason,
		CreatedBy:        ToUserSummaryDTO(escalation.CreatedBy),
		CreatedAt:        escalation.CreatedAt.UTC().Format(timestampLayout),
		Resolved:         escalation.Resolved,
		ResolvedBy:       ToUserSummaryDTO(escalation.ResolvedBy),
	}
	if escalation.ResolvedAt != nil {
		resolvedAt := escalation.ResolvedAt.UTC().Format(timestampLayout)
		dto.ResolvedAt = &resolvedAt
	}
	if resp := escalation.Responsibility; resp != nil {
		dto.Responsibility = resp.Title
		if resp.ProjectStatus != nil && resp.ProjectStatus.Project != nil {
			dto.ProjectCode = resp.ProjectStatus.Project.Code
			dto.ProjectName = resp.ProjectStatus.Project.Name
		}
	}
	return dto
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(notification *domain.Notification) domain.NotificationDTO {
	dto := domain.NotificationDTO{
		ID:         notification.ID,
		Type:       notification.Type,
		Title:      notification.Title,
		Message:    notification.Message,
		Read:       notification.Read,
		EntityID:   notification.EntityID,
		EntityType: notification.EntityType,
		CreatedAt:  notification.CreatedAt.UTC().Format(timestampLayout),
	}
	if notification.ReadAt != nil {
		readAt := notification.ReadAt.UTC().Format(timestampLayout)
		dto.ReadAt = &readAt
	}
	return dto
}

// ToAuditLogDTO converts AuditLog to AuditLogDTO
func ToAuditLogDTO(log *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          log.ID,
		UserID:      log.UserID,
		UserName:    log.UserName,
		Action:      log.Action,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		Changes:     log.Changes,
		RequestID:   log.RequestID,
		PerformedAt: log.PerformedAt.UTC().Format(timestampLayout),
	}
}

// ToUserResponsibilityDTO converts a report row
func ToUserResponsibilityDTO(row *repository.UserResponsibilityRow) domain.UserResponsibilityDTO {
	return domain.UserResponsibilityDTO{
		ID:              row.ID,
		Title:           row.Title,
		Status:          row.Status,
		NeedsEscalation: row.NeedsEscalation,
		ProjectCode:     row.ProjectCode,
		ProjectName:     row.ProjectName,
		StatusDate:      row.StatusDate.Format(domain.DateLayout),
	}
}
