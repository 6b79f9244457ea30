package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

// UserSummaryDTO is the compact user reference embedded in other payloads
type UserSummaryDTO struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}

type UserDTO struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
	Role       Role      `json:"role"`
	RoleLabel  string    `json:"roleLabel"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  string    `json:"createdAt"` // ISO 8601
}

type ProjectDTO struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Manager      *UserSummaryDTO `json:"manager,omitempty"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate"`
	CurrentPhase Phase           `json:"currentPhase"`
	PhaseLabel   string          `json:"phaseLabel"`
	Progress     int             `json:"progress"`
	CreatedAt    string          `json:"createdAt"`
	UpdatedAt    string          `json:"updatedAt"`
}

type ProjectStatusDTO struct {
	ID               uuid.UUID           `json:"id"`
	ProjectID        uuid.UUID           `json:"projectId"`
	ProjectCode      string              `json:"projectCode,omitempty"`
	ProjectName      string              `json:"projectName,omitempty"`
	StatusDate       string              `json:"statusDate"`
	Phase            Phase               `json:"phase"`
	IsBaseline       bool                `json:"isBaseline"`
	IsFinal          bool                `json:"isFinal"`
	CreatedBy        *UserSummaryDTO     `json:"createdBy,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	Responsibilities []ResponsibilityDTO `json:"responsibilities"`
	CreatedAt        string              `json:"createdAt"`
}

type ResponsibilityDTO struct {
	ID              uuid.UUID       `json:"id"`
	ProjectStatusID uuid.UUID       `json:"projectStatusId"`
	Title           string          `json:"title"`
	Status          HealthStatus    `json:"status"`
	StatusLabel     string          `json:"statusLabel"`
	NeedsEscalation bool            `json:"needsEscalation"`
	Progress        int             `json:"progress"`
	Responsible     *UserSummaryDTO `json:"responsible,omitempty"`
	Deputy          *UserSummaryDTO `json:"deputy,omitempty"`
	Comments        string          `json:"comments,omitempty"`
	UpdatedAt       string          `json:"updatedAt"`
}

// ResponsibilityUpdateResultDTO is returned by a responsibility update
type ResponsibilityUpdateResultDTO struct {
	Responsibility ResponsibilityDTO `json:"responsibility"`
	Escalated      bool              `json:"escalated"`
	EscalationID   *uuid.UUID        `json:"escalationId,omitempty"`
}

type EscalationDTO struct {
	ID               uuid.UUID       `json:"id"`
	ResponsibilityID uuid.UUID       `json:"responsibilityId"`
	Responsibility   string          `json:"responsibilityTitle,omitempty"`
	ProjectCode      string          `json:"projectCode,omitempty"`
	ProjectName      string          `json:"projectName,omitempty"`
	Reason           string          `json:"reason"`
	CreatedBy        *UserSummaryDTO `json:"createdBy,omitempty"`
	CreatedAt        string          `json:"createdAt"`
	Resolved         bool            `json:"resolved"`
	ResolvedAt       *string         `json:"resolvedAt,omitempty"`
	ResolvedBy       *UserSummaryDTO `json:"resolvedBy,omitempty"`
}

type NotificationDTO struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Read       bool       `json:"read"`
	ReadAt     *string    `json:"readAt,omitempty"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`
	EntityType string     `json:"entityType,omitempty"`
	CreatedAt  string     `json:"createdAt"`
}

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserID      *uuid.UUID  `json:"userId,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entityType"`
	EntityID    uuid.UUID   `json:"entityId"`
	Changes     string      `json:"changes,omitempty"`
	RequestID   string      `json:"requestId,omitempty"`
	PerformedAt string      `json:"performedAt"`
}

// ProjectSummaryDTO holds the portfolio-wide status aggregates
type ProjectSummaryDTO struct {
	TotalProjects     int64   `json:"totalProjects"`
	InProduction      int64   `json:"inProduction"`
	EscalatedProjects int64   `json:"escalatedProjects"`
	EscalationRate    float64 `json:"escalationRate"`
}

// UserResponsibilityDTO is a responsibility row joined with its project
type UserResponsibilityDTO struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Status          HealthStatus `json:"status"`
	NeedsEscalation bool         `json:"needsEscalation"`
	ProjectCode     string       `json:"projectCode"`
	ProjectName     string       `json:"projectName"`
	StatusDate      string       `json:"statusDate"`
}

// CloneResultDTO reports the outcome of cloning a previous snapshot
type CloneResultDTO struct {
	Status  string `json:"status"`
	Created int    `json:"created"`
}

// TokenPairDTO is returned on login and refresh
type TokenPairDTO struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresIn int64  `json:"expiresIn"`
}

// MessageDTO carries a plain informational response
type MessageDTO struct {
	Message string `json:"message"`
}

// Request DTOs

type RegisterRequest struct {
	Username   string `json:"username" validate:"required,max=150"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=128"`
	FirstName  string `json:"firstName" validate:"max=150"`
	LastName   string `json:"lastName" validate:"max=150"`
	Phone      string `json:"phone" validate:"max=20"`
	Department string `json:"department" validate:"max=100"`
	Role       Role   `json:"role" validate:"omitempty,oneof=PM RESP DEP EM ADMIN"`
}

type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

type UpdateUserRequest struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	FirstName  string `json:"firstName" validate:"max=150"`
	LastName   string `json:"lastName" validate:"max=150"`
	Phone      string `json:"phone" validate:"max=20"`
	Department string `json:"department" validate:"max=100"`
	Role       Role   `json:"role" validate:"required,oneof=PM RESP DEP EM ADMIN"`
	IsActive   *bool  `json:"isActive"`
}

type CreateProjectRequest struct {
	Code        string     `json:"code" validate:"required,max=20,project_code"`
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description"`
	ManagerID   *uuid.UUID `json:"managerId"`
	StartDate   string     `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string     `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// UpdateProjectRequest omits the code, which is immutable once set
type UpdateProjectRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description"`
	ManagerID   *uuid.UUID `json:"managerId"`
	StartDate   string     `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string     `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type CreateProjectStatusRequest struct {
	ProjectID  *uuid.UUID `json:"project"`
	StatusDate string     `json:"statusDate" validate:"omitempty,datetime=2006-01-02"`
	Phase      Phase      `json:"phase" validate:"required,oneof=PLAN DEV TEST PROD COMP"`
	Notes      string     `json:"notes"`
}

type UpdateProjectStatusRequest struct {
	Phase Phase  `json:"phase" validate:"required,oneof=PLAN DEV TEST PROD COMP"`
	Notes string `json:"notes"`
}

type CreateResponsibilityRequest struct {
	ProjectStatusID uuid.UUID    `json:"projectStatus" validate:"required"`
	Title           string       `json:"title" validate:"required,max=255"`
	Status          HealthStatus `json:"status" validate:"omitempty,oneof=G Y R"`
	NeedsEscalation bool         `json:"needsEscalation"`
	Progress        int          `json:"progress" validate:"gte=0,lte=100"`
	ResponsibleID   *uuid.UUID   `json:"responsibleId"`
	DeputyID        *uuid.UUID   `json:"deputyId"`
	Comments        string       `json:"comments"`
}

type UpdateResponsibilityRequest struct {
	Title           string       `json:"title" validate:"required,max=255"`
	Status          HealthStatus `json:"status" validate:"required,oneof=G Y R"`
	NeedsEscalation bool         `json:"needsEscalation"`
	Progress        int          `json:"progress" validate:"gte=0,lte=100"`
	ResponsibleID   *uuid.UUID   `json:"responsibleId"`
	DeputyID        *uuid.UUID   `json:"deputyId"`
	Comments        string       `json:"comments"`
}

type CreateEscalationRequest struct {
	ResponsibilityID uuid.UUID `json:"responsibility" validate:"required"`
	Reason           string    `json:"reason" validate:"required,max=2000"`
}

// Filters

// ProjectFilters narrows the project list
type ProjectFilters struct {
	Code         string
	Name         string
	CurrentPhase Phase
}

// EscalationFilters narrows escalation listings and reports
type EscalationFilters struct {
	Resolved         *bool
	ProjectID        *uuid.UUID
	ProjectCode      string
	ResponsibilityID *uuid.UUID
	DateFrom         *time.Time
	DateTo           *time.Time
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
