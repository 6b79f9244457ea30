package service_test

import (
	"testing"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"github.com/straye-as/status-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscalationRate(t *testing.T) {
	assert.Equal(t, 0.0, service.EscalationRate(0, 0))
	assert.Equal(t, 50.0, service.EscalationRate(1, 2))
	assert.Equal(t, 33.33, service.EscalationRate(1, 3))
	assert.Equal(t, 66.67, service.EscalationRate(2, 3))
	assert.Equal(t, 100.0, service.EscalationRate(4, 4))
}

func TestReportService_ProjectSummary_Empty(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)

	summary, err := h.reportSvc.ProjectSummary(as(user))
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalProjects)
	assert.Equal(t, 0.0, summary.EscalationRate)
}

func TestReportService_ProjectSummary(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)

	calm := testutil.CreateTestProject(t, h.db, "1000000001-01S", "Calm")
	troubled := testutil.CreateTestProject(t, h.db, "1000000002-01S", "Troubled")

	calmStatus := testutil.CreateTestStatus(t, h.db, calm.ID, date("2024-03-01"), domain.PhaseProduction)
	testutil.CreateTestResponsibility(t, h.db, calmStatus.ID, "Supply Chain", user, nil)

	troubledStatus := testutil.CreateTestStatus(t, h.db, troubled.ID, date("2024-03-01"), domain.PhaseDevelopment)
	red := testutil.CreateTestResponsibility(t, h.db, troubledStatus.ID, "Supply Chain", user, nil)
	require.NoError(t, h.db.Model(red).Update("status", domain.HealthRed).Error)
	flagged := testutil.CreateTestResponsibility(t, h.db, troubledStatus.ID, "Quality Planning", user, nil)
	require.NoError(t, h.db.Model(flagged).Update("needs_escalation", true).Error)

	summary, err := h.reportSvc.ProjectSummary(as(user))
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalProjects)
	assert.Equal(t, int64(1), summary.InProduction)
	assert.Equal(t, int64(1), summary.EscalatedProjects)
	assert.Equal(t, 50.0, summary.EscalationRate)
}

func TestReportService_UserResponsibilities_DefaultsToCaller(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)
	bob := testutil.CreateTestUser(t, h.db, "bob", domain.RoleDeputy)
	project := testutil.CreateTestProject(t, h.db, "1000000001-01S", "Alpha")
	status := testutil.CreateTestStatus(t, h.db, project.ID, date("2024-03-01"), domain.PhasePlanning)
	testutil.CreateTestResponsibility(t, h.db, status.ID, "Supply Chain", alice, bob)
	testutil.CreateTestResponsibility(t, h.db, status.ID, "Quality Planning", alice, nil)

	mine, err := h.reportSvc.UserResponsibilities(as(alice), nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "1000000001-01S", mine[0].ProjectCode)
	assert.Equal(t, "2024-03-01", mine[0].StatusDate)

	bobs, err := h.reportSvc.UserResponsibilities(as(alice), &bob.ID)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, "Supply Chain", bobs[0].Title)
}

func TestReportService_Index(t *testing.T) {
	h := newHarness(t)
	index := h.reportSvc.Index("/api/v1/reports")
	assert.Equal(t, "/api/v1/reports/project_summary", index["project_summary"])
	assert.Len(t, index, 3)
}
