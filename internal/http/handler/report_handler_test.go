package handler_test

import (
	"net/http"
	"testing"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportHandler(t *testing.T) {
	h := setupHandlers(t)
	alice := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)

	t.Run("index", func(t *testing.T) {
		rr := call(t, h.report.Index, http.MethodGet, "/reports", nil, alice, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var index map[string]string
		decode(t, rr, &index)
		assert.Equal(t, "/api/v1/reports/escalation_report", index["escalation_report"])
	})

	t.Run("empty portfolio", func(t *testing.T) {
		rr := call(t, h.report.ProjectSummary, http.MethodGet, "/reports/project_summary", nil, alice, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var summary domain.ProjectSummaryDTO
		decode(t, rr, &summary)
		assert.Equal(t, int64(0), summary.TotalProjects)
		assert.Equal(t, 0.0, summary.EscalationRate)
	})

	t.Run("user responsibilities", func(t *testing.T) {
		project := testutil.CreateTestProject(t, h.db, "1000000001-01S", "Alpha")
		status := testutil.CreateTestStatus(t, h.db, project.ID, mustDate(t, "2024-03-01"), domain.PhasePlanning)
		testutil.CreateTestResponsibility(t, h.db, status.ID, "Supply Chain", alice, nil)

		rr := call(t, h.report.UserResponsibilities, http.MethodGet, "/reports/user_responsibilities", nil, alice, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var rows []domain.UserResponsibilityDTO
		decode(t, rr, &rows)
		require.Len(t, rows, 1)
		assert.Equal(t, "1000000001-01S", rows[0].ProjectCode)

		rr = call(t, h.report.UserResponsibilities, http.MethodGet, "/reports/user_responsibilities?user_id=42", nil, alice, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestNotificationHandler(t *testing.T) {
	h := setupHandlers(t)
	alice := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)
	require.NoError(t, h.db.Create(&domain.Notification{
		UserID: alice.ID,
		Type:   string(domain.NotificationTypeEscalation),
		Title:  "Escalation: Supply Chain",
	}).Error)

	rr := call(t, h.notification.List, http.MethodGet, "/notifications?type=deal_won", nil, alice, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(t, h.notification.GetUnreadCount, http.MethodGet, "/notifications/unread-count", nil, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var count map[string]int64
	decode(t, rr, &count)
	assert.Equal(t, int64(1), count["count"])

	rr = call(t, h.notification.MarkAllAsRead, http.MethodPut, "/notifications/read-all", nil, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(t, h.notification.List, http.MethodGet, "/notifications?unread_only=true", nil, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page domain.PaginatedResponse
	decode(t, rr, &page)
	assert.Equal(t, int64(0), page.Total)
}

func TestAuditHandler_AdminOnly(t *testing.T) {
	h := setupHandlers(t)
	admin := testutil.CreateTestUser(t, h.db, "admin", domain.RoleAdministrator)
	pm := testutil.CreateTestUser(t, h.db, "pm", domain.RoleProjectManager)

	rr := call(t, h.project.Create, http.MethodPost, "/projects", projectBody("1000000002-01S"), pm, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = call(t, h.audit.List, http.MethodGet, "/audit", nil, pm, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, h.audit.List, http.MethodGet, "/audit?entity_type=Project", nil, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page domain.PaginatedResponse
	decode(t, rr, &page)
	assert.Equal(t, int64(1), page.Total)

	rr = call(t, h.audit.List, http.MethodGet, "/audit?start_time=yesterday", nil, admin, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
