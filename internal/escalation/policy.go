package escalation

import (
	"fmt"
	"strings"

	"github.com/straye-as/status-api/internal/domain"
)

// Verdict is the outcome of evaluating a transition
type Verdict bool

const (
	NoEscalation Verdict = false
	Escalate     Verdict = true
)

// Decide escalates only when a watched field actually changed and the
// resulting state is degraded (Yellow/Red) or explicitly flagged.
func Decide(prevStatus, newStatus domain.HealthStatus, prevFlag, newFlag bool) Verdict {
	changed := prevStatus != newStatus || prevFlag != newFlag
	if !changed {
		return NoEscalation
	}
	if newStatus.IsDegraded() || newFlag {
		return Escalate
	}
	return NoEscalation
}

// Evaluate applies Decide to a tracked change set
func Evaluate(c FieldChanges) Verdict {
	s := c.Status()
	f := c.NeedsEscalation()
	return Decide(s.Before, s.After, f.Before, f.After)
}

// AutomaticReason is the reason recorded on policy-triggered escalations
func AutomaticReason(title string) string {
	return "Automatic escalation triggered for " + title
}

// Message is a rendered escalation notice
type Message struct {
	Subject string
	Body    string
}

// Compose renders the escalation notice sent to the responsible and deputy.
// The review link points at the status snapshot owning the responsibility.
func Compose(project *domain.Project, resp *domain.Responsibility, reason, frontendURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s - %s\n", project.Code, project.Name)
	fmt.Fprintf(&b, "Responsibility: %s\n", resp.Title)
	fmt.Fprintf(&b, "Status: %s\n", resp.Status.Label())
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	fmt.Fprintf(&b, "Please review: %s/status/%s/\n", strings.TrimRight(frontendURL, "/"), resp.ProjectStatusID)

	return Message{
		Subject: "ESCALATION: " + project.Name,
		Body:    b.String(),
	}
}

// Recipients returns the responsible and deputy addresses without blanks
// or duplicates, in that order.
func Recipients(resp *domain.Responsibility) []string {
	var out []string
	seen := make(map[string]struct{}, 2)
	for _, u := range []*domain.User{resp.Responsible, resp.Deputy} {
		if u == nil {
			continue
		}
		email := strings.TrimSpace(u.Email)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	return out
}
