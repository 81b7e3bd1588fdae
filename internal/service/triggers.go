package service

import (
	"fmt"
	"time"

	"github.com/spec-kit/campus-support/internal/domain"
)

const (
	reasonAcknowledgementBreach = "Not acknowledged within SLA"
	reasonResolutionBreach      = "Not resolved within SLA"
	reasonManualDefault         = "Manually escalated"
	noMatchingRuleSuffix        = " (no matching escalation rule found)"

	// escalationBonusHours is the deadline relief granted on every escalation.
	escalationBonusHours = 48
	reopenThreshold      = 3
	negativeRatingMax    = 2
)

var extensionThresholds = map[int]bool{3: true, 5: true, 7: true}

// breachTrigger reports which SLA the ticket has breached. Acknowledgement
// wins when both have lapsed.
func breachTrigger(ticket *domain.Ticket, now time.Time) (domain.EscalationTrigger, string, bool) {
	switch {
	case ticket.AcknowledgementBreached(now):
		return domain.TriggerAcknowledgementBreach, reasonAcknowledgementBreach, true
	case ticket.ResolutionBreached(now):
		return domain.TriggerResolutionBreach, reasonResolutionBreach, true
	}
	return "", "", false
}

func extensionTriggerReason(count int) (string, bool) {
	if !extensionThresholds[count] {
		return "", false
	}
	return fmt.Sprintf("TAT extension limit reached (extension #%d)", count), true
}

func reopenTriggerReason(count int) (string, bool) {
	if count != reopenThreshold {
		return "", false
	}
	return "Repeated reopening (3rd time)", true
}

func feedbackTriggerReason(rating int) (string, bool) {
	if rating > negativeRatingMax {
		return "", false
	}
	unit := "stars"
	if rating == 1 {
		unit = "star"
	}
	return fmt.Sprintf("Negative feedback (%d %s)", rating, unit), true
}
