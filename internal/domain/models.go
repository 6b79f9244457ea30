package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Role is the single role a user holds
type Role string

const (
	RoleProjectManager    Role = "PM"
	RoleResponsible       Role = "RESP"
	RoleDeputy            Role = "DEP"
	RoleEscalationManager Role = "EM"
	RoleAdministrator     Role = "ADMIN"
)

// Roles lists every valid role in display order
var Roles = []Role{
	RoleProjectManager,
	RoleResponsible,
	RoleDeputy,
	RoleEscalationManager,
	RoleAdministrator,
}

// IsValid checks if the role is a known role code
func (r Role) IsValid() bool {
	switch r {
	case RoleProjectManager, RoleResponsible, RoleDeputy, RoleEscalationManager, RoleAdministrator:
		return true
	}
	return false
}

// Label returns the human readable role name
func (r Role) Label() string {
	switch r {
	case RoleProjectManager:
		return "Project Manager"
	case RoleResponsible:
		return "Responsible"
	case RoleDeputy:
		return "Deputy"
	case RoleEscalationManager:
		return "Escalation Manager"
	case RoleAdministrator:
		return "Administrator"
	}
	return string(r)
}

// Phase represents the lifecycle phase of a project
type Phase string

const (
	PhasePlanning    Phase = "PLAN"
	PhaseDevelopment Phase = "DEV"
	PhaseTesting     Phase = "TEST"
	PhaseProduction  Phase = "PROD"
	PhaseCompleted   Phase = "COMP"
)

// Phases is the ordered phase sequence
var Phases = []Phase{
	PhasePlanning,
	PhaseDevelopment,
	PhaseTesting,
	PhaseProduction,
	PhaseCompleted,
}

// IsValid checks if the phase is part of the sequence
func (p Phase) IsValid() bool {
	return p.Index() >= 0
}

// Index returns the position of the phase in the sequence, or -1
func (p Phase) Index() int {
	for i, phase := range Phases {
		if phase == p {
			return i
		}
	}
	return -1
}

// Progress is the percentage derived from the phase position
func (p Phase) Progress() int {
	idx := p.Index()
	if idx < 0 {
		return 0
	}
	return idx * 25
}

// Label returns the human readable phase name
func (p Phase) Label() string {
	switch p {
	case PhasePlanning:
		return "Planning"
	case PhaseDevelopment:
		return "Development"
	case PhaseTesting:
		return "Testing"
	case PhaseProduction:
		return "Serial Production"
	case PhaseCompleted:
		return "Completed"
	}
	return string(p)
}

// HealthStatus is the traffic light status of a responsibility
type HealthStatus string

const (
	HealthGreen  HealthStatus = "G"
	HealthYellow HealthStatus = "Y"
	HealthRed    HealthStatus = "R"
)

// IsValid checks if the status is one of G, Y or R
func (s HealthStatus) IsValid() bool {
	switch s {
	case HealthGreen, HealthYellow, HealthRed:
		return true
	}
	return false
}

// IsDegraded reports whether the status is Yellow or Red
func (s HealthStatus) IsDegraded() bool {
	return s == HealthYellow || s == HealthRed
}

// Label returns the display label used in notifications
func (s HealthStatus) Label() string {
	switch s {
	case HealthGreen:
		return "Green"
	case HealthYellow:
		return "Yellow"
	case HealthRed:
		return "Red"
	}
	return string(s)
}

// User represents an account in the system
type User struct {
	BaseModel
	Username     string `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string `gorm:"type:varchar(254);not null;index"`
	FirstName    string `gorm:"type:varchar(150)"`
	LastName     string `gorm:"type:varchar(150)"`
	Phone        string `gorm:"type:varchar(20)"`
	Department   string `gorm:"type:varchar(100)"`
	Role         Role   `gorm:"type:varchar(5);not null;default:'RESP'"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	IsActive     bool   `gorm:"not null;default:true"`
}

// DisplayName returns the full name or falls back to the username
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// Project is a tracked project identified by its code
type Project struct {
	BaseModel
	Code         string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name         string     `gorm:"type:varchar(255);not null"`
	Description  string     `gorm:"type:text"`
	ManagerID    *uuid.UUID `gorm:"type:uuid;index"`
	Manager      *User      `gorm:"foreignKey:ManagerID;constraint:OnDelete:SET NULL"`
	StartDate    time.Time  `gorm:"type:date;not null"`
	EndDate      time.Time  `gorm:"type:date;not null"`
	CurrentPhase Phase      `gorm:"type:varchar(5);not null;default:'PLAN'"`
}

// Progress is derived from the current phase and never stored
func (p *Project) Progress() int {
	return p.CurrentPhase.Progress()
}

// ProjectStatus is a dated status snapshot of a project
type ProjectStatus struct {
	BaseModel
	ProjectID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_project_status_date"`
	Project          *Project         `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	StatusDate       time.Time        `gorm:"type:date;not null;uniqueIndex:idx_project_status_date"`
	Phase            Phase            `gorm:"type:varchar(5);not null"`
	IsBaseline       bool             `gorm:"not null;default:false"`
	IsFinal          bool             `gorm:"not null;default:false"`
	CreatedByID      *uuid.UUID       `gorm:"type:uuid"`
	CreatedBy        *User            `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	Notes            string           `gorm:"type:text"`
	Responsibilities []Responsibility `gorm:"foreignKey:ProjectStatusID;constraint:OnDelete:CASCADE"`
}

// Responsibility is a tracked line item within a status snapshot
type Responsibility struct {
	BaseModel
	ProjectStatusID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ProjectStatus   *ProjectStatus `gorm:"foreignKey:ProjectStatusID;constraint:OnDelete:CASCADE"`
	Title           string         `gorm:"type:varchar(255);not null"`
	Status          HealthStatus   `gorm:"type:varchar(1);not null;default:'G'"`
	NeedsEscalation bool           `gorm:"not null;default:false"`
	Progress        int            `gorm:"not null;default:0"`
	ResponsibleID   *uuid.UUID     `gorm:"type:uuid;index"`
	Responsible     *User          `gorm:"foreignKey:ResponsibleID;constraint:OnDelete:SET NULL"`
	DeputyID        *uuid.UUID     `gorm:"type:uuid;index"`
	Deputy          *User          `gorm:"foreignKey:DeputyID;constraint:OnDelete:SET NULL"`
	Comments        string         `gorm:"type:text"`
}

// IsAssignedTo reports whether the user is the responsible or the deputy
func (r *Responsibility) IsAssignedTo(userID uuid.UUID) bool {
	if r.ResponsibleID != nil && *r.ResponsibleID == userID {
		return true
	}
	return r.DeputyID != nil && *r.DeputyID == userID
}

// Escalation records a degraded responsibility that needs attention
type Escalation struct {
	BaseModel
	ResponsibilityID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Responsibility   *Responsibility `gorm:"foreignKey:ResponsibilityID;constraint:OnDelete:CASCADE"`
	Reason           string          `gorm:"type:text;not null"`
	CreatedByID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedBy        *User           `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`
	Resolved         bool            `gorm:"not null;default:false;index"`
	ResolvedAt       *time.Time
	ResolvedByID     *uuid.UUID `gorm:"type:uuid"`
	ResolvedBy       *User      `gorm:"foreignKey:ResolvedByID;constraint:OnDelete:SET NULL"`
}

// NotificationType categorizes in-app notifications
type NotificationType string

const (
	NotificationTypeEscalation         NotificationType = "escalation"
	NotificationTypeEscalationResolved NotificationType = "escalation_resolved"
)

// Notification is an in-app message for a single user
type Notification struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Type       string    `gorm:"type:varchar(50);not null"`
	Title      string    `gorm:"type:varchar(200);not null"`
	Message    string    `gorm:"type:varchar(500);not null"`
	Read       bool      `gorm:"column:read;not null;default:false;index"`
	ReadAt     *time.Time
	EntityID   *uuid.UUID `gorm:"type:uuid"`
	EntityType string     `gorm:"type:varchar(50)"`
}

// PasswordResetToken holds a single outstanding reset token per user
type PasswordResetToken struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Token     string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// IsExpired reports whether the token is no longer usable at the given time
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// AuditAction represents the type of action recorded in the audit log
type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionBaseline AuditAction = "baseline"
	AuditActionFinal    AuditAction = "final"
	AuditActionClone    AuditAction = "clone"
	AuditActionEscalate AuditAction = "escalate"
	AuditActionResolve  AuditAction = "resolve"
)

// AuditLog is an append-only record of a mutation
type AuditLog struct {
	BaseModel
	UserID      *uuid.UUID  `gorm:"type:uuid;index"`
	UserName    string      `gorm:"type:varchar(150)"`
	Action      AuditAction `gorm:"type:varchar(20);not null"`
	EntityType  string      `gorm:"type:varchar(50);not null;index:idx_audit_entity"`
	EntityID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_audit_entity"`
	Changes     string      `gorm:"type:text"`
	RequestID   string      `gorm:"type:varchar(100)"`
	PerformedAt time.Time   `gorm:"not null;index"`
}

// DateOnly truncates a time to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"
