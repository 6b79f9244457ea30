package mapper_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToProjectDTO(t *testing.T) {
	manager := &domain.User{Username: "pm", FirstName: "Petra", LastName: "Moe", Email: "pm@example.com"}
	manager.ID = uuid.New()

	project := &domain.Project{
		Code:         "1000000001-01S",
		Name:         "Pump",
		Manager:      manager,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		CurrentPhase: domain.PhaseTesting,
	}
	project.ID = uuid.New()

	dto := mapper.ToProjectDTO(project)

	assert.Equal(t, project.ID, dto.ID)
	assert.Equal(t, "2024-01-01", dto.StartDate)
	assert.Equal(t, "2024-12-31", dto.EndDate)
	assert.Equal(t, 50, dto.Progress)
	assert.Equal(t, "Testing", dto.PhaseLabel)
	require.NotNil(t, dto.Manager)
	assert.Equal(t, "Petra Moe", dto.Manager.Name)
}

func TestToProjectStatusDTO(t *testing.T) {
	responsible := &domain.User{Username: "resp"}
	responsible.ID = uuid.New()

	status := &domain.ProjectStatus{
		ProjectID:  uuid.New(),
		Project:    &domain.Project{Code: "1000000001-01S", Name: "Pump"},
		StatusDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Phase:      domain.PhaseDevelopment,
		Responsibilities: []domain.Responsibility{
			{Title: "Supply Chain", Status: domain.HealthRed, Responsible: responsible},
			{Title: "Quality Planning", Status: domain.HealthGreen},
		},
	}

	dto := mapper.ToProjectStatusDTO(status)

	assert.Equal(t, "2024-03-01", dto.StatusDate)
	assert.Equal(t, "Pump", dto.ProjectName)
	assert.Nil(t, dto.CreatedBy)
	require.Len(t, dto.Responsibilities, 2)
	assert.Equal(t, "Red", dto.Responsibilities[0].StatusLabel)
	assert.Equal(t, "resp", dto.Responsibilities[0].Responsible.Name)
	assert.Nil(t, dto.Responsibilities[1].Responsible)
}

func TestToEscalationDTO(t *testing.T) {
	resolvedAt := time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC)
	escalation := &domain.Escalation{
		Reason:     "Automatic escalation triggered for Supply Chain",
		Resolved:   true,
		ResolvedAt: &resolvedAt,
		Responsibility: &domain.Responsibility{
			Title: "Supply Chain",
			ProjectStatus: &domain.ProjectStatus{
				Project: &domain.Project{Code: "1000000001-01S", Name: "Pump"},
			},
		},
	}

	dto := mapper.ToEscalationDTO(escalation)

	assert.Equal(t, "Supply Chain", dto.Responsibility)
	assert.Equal(t, "1000000001-01S", dto.ProjectCode)
	require.NotNil(t, dto.ResolvedAt)
	assert.Equal(t, "2024-04-02T10:30:00Z", *dto.ResolvedAt)
}

func TestToUserSummaryDTO_Nil(t *testing.T) {
	assert.Nil(t, mapper.ToUserSummaryDTO(nil))
}
