package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/database"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens an isolated in-memory SQLite database with the schema
// migrated and foreign keys enforced. The database is closed on cleanup.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// TestPassword is the clear-text password of users created by CreateTestUser
const TestPassword = "correct-horse-battery"

// CreateTestUser inserts a user with the given role
func CreateTestUser(t *testing.T, db *gorm.DB, username string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    username,
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestProject inserts a project in the planning phase
func CreateTestProject(t *testing.T, db *gorm.DB, code, name string) *domain.Project {
	t.Helper()

	project := &domain.Project{
		Code:         code,
		Name:         name,
		StartDate:    domain.DateOnly(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:      domain.DateOnly(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)),
		CurrentPhase: domain.PhasePlanning,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(project).Error)
	return project
}

// CreateTestStatus inserts a snapshot without seeding responsibilities
func CreateTestStatus(t *testing.T, db *gorm.DB, projectID uuid.UUID, date time.Time, phase domain.Phase) *domain.ProjectStatus {
	t.Helper()

	status := &domain.ProjectStatus{
		ProjectID:  projectID,
		StatusDate: domain.DateOnly(date),
		Phase:      phase,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(status).Error)
	return status
}

// CreateTestResponsibility inserts a responsibility under a snapshot
func CreateTestResponsibility(t *testing.T, db *gorm.DB, statusID uuid.UUID, title string, responsible, deputy *domain.User) *domain.Responsibility {
	t.Helper()

	resp := &domain.Responsibility{
		ProjectStatusID: statusID,
		Title:           title,
		Status:          domain.HealthGreen,
	}
	if responsible != nil {
		resp.ResponsibleID = &responsible.ID
	}
	if deputy != nil {
		resp.DeputyID = &deputy.ID
	}
	require.NoError(t, db.Omit(clause.Associations).Create(resp).Error)
	return resp
}

// UserContext builds an authenticated caller for the given user
func UserContext(u *domain.User) *auth.UserContext {
	return &auth.UserContext{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}
