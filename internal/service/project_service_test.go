package service_test

import (
	"testing"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/repository"
	"github.com/straye-as/status-api/internal/service"
	"github.com/straye-as/status-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProjectRequest() *domain.CreateProjectRequest {
	return &domain.CreateProjectRequest{
		Code:      "1000000007-01S",
		Name:      "Gearbox",
		StartDate: "2024-01-01",
		EndDate:   "2024-12-31",
	}
}

func TestProjectService_Create(t *testing.T) {
	h := newHarness(t)
	pm := testutil.CreateTestUser(t, h.db, "pm", domain.RoleProjectManager)

	project, err := h.projectSvc.Create(as(pm), validProjectRequest())
	require.NoError(t, err)
	assert.Equal(t, "1000000007-01S", project.Code)
	assert.Equal(t, domain.PhasePlanning, project.CurrentPhase)
	assert.Equal(t, 0, project.Progress)
	assert.Equal(t, "2024-12-31", project.EndDate)

	_, err = h.projectSvc.Create(as(pm), validProjectRequest())
	assert.ErrorIs(t, err, service.ErrDuplicateProjectCode)

	taken, err := h.projectSvc.CheckCode(as(pm), "1000000007-01S")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestProjectService_Create_Validation(t *testing.T) {
	h := newHarness(t)
	pm := testutil.CreateTestUser(t, h.db, "pm", domain.RoleProjectManager)
	resp := testutil.CreateTestUser(t, h.db, "resp", domain.RoleResponsible)

	t.Run("end before start", func(t *testing.T) {
		req := validProjectRequest()
		req.EndDate = "2023-12-31"
		_, err := h.projectSvc.Create(as(pm), req)
		var fields domain.FieldErrors
		require.ErrorAs(t, err, &fields)
		assert.Contains(t, fields, "endDate")
	})

	t.Run("same day is allowed", func(t *testing.T) {
		req := validProjectRequest()
		req.Code = "1000000008-01S"
		req.EndDate = req.StartDate
		_, err := h.projectSvc.Create(as(pm), req)
		assert.NoError(t, err)
	})

	t.Run("unknown manager", func(t *testing.T) {
		req := validProjectRequest()
		req.Code = "1000000009-01S"
		ghost := pm.ID
		ghost[0] ^= 0xff
		req.ManagerID = &ghost
		_, err := h.projectSvc.Create(as(pm), req)
		var fields domain.FieldErrors
		require.ErrorAs(t, err, &fields)
		assert.Contains(t, fields, "managerId")
	})

	t.Run("responsible cannot create", func(t *testing.T) {
		_, err := h.projectSvc.Create(as(resp), validProjectRequest())
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})
}

func TestProjectService_Visibility(t *testing.T) {
	h := newHarness(t)
	pm := testutil.CreateTestUser(t, h.db, "pm", domain.RoleProjectManager)
	alice := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)
	mine := testutil.CreateTestProject(t, h.db, "1000000001-01S", "Mine")
	other := testutil.CreateTestProject(t, h.db, "1000000002-01S", "Other")
	status := testutil.CreateTestStatus(t, h.db, mine.ID, date("2024-03-01"), domain.PhasePlanning)
	testutil.CreateTestResponsibility(t, h.db, status.ID, "Supply Chain", nil, alice)

	_, err := h.projectSvc.GetByID(as(alice), mine.ID)
	assert.NoError(t, err)
	_, err = h.projectSvc.GetByID(as(alice), other.ID)
	assert.ErrorIs(t, err, service.ErrProjectNotFound)

	page, err := h.projectSvc.List(as(alice), &domain.ProjectFilters{}, repository.SortConfig{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = h.projectSvc.List(as(pm), &domain.ProjectFilters{}, repository.SortConfig{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestProjectService_Delete_Cascades(t *testing.T) {
	h := newHarness(t)
	pm := testutil.CreateTestUser(t, h.db, "pm", domain.RoleProjectManager)
	project := testutil.CreateTestProject(t, h.db, "1000000001-01S", "Alpha")
	status := testutil.CreateTestStatus(t, h.db, project.ID, date("2024-03-01"), domain.PhasePlanning)
	resp := testutil.CreateTestResponsibility(t, h.db, status.ID, "Supply Chain", pm, nil)
	require.NoError(t, h.db.Create(&domain.Escalation{ResponsibilityID: resp.ID, Reason: "late", CreatedByID: pm.ID}).Error)

	require.NoError(t, h.projectSvc.Delete(as(pm), project.ID))

	for _, model := range []interface{}{&domain.Project{}, &domain.ProjectStatus{}, &domain.Responsibility{}, &domain.Escalation{}} {
		var count int64
		require.NoError(t, h.db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}

	err := h.projectSvc.Delete(as(pm), project.ID)
	assert.ErrorIs(t, err, service.ErrProjectNotFound)
}
