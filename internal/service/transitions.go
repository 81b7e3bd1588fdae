package service

import (
	"fmt"

	"github.com/spec-kit/campus-support/internal/domain"
	apperrors "github.com/spec-kit/campus-support/pkg/util/errorutil"
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen: {
		domain.TicketStatusAcknowledged, domain.TicketStatusInProgress,
		domain.TicketStatusAwaitingStudentResponse, domain.TicketStatusCancelled,
	},
	domain.TicketStatusAcknowledged: {
		domain.TicketStatusInProgress, domain.TicketStatusAwaitingStudentResponse,
		domain.TicketStatusResolved, domain.TicketStatusCancelled,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusAwaitingStudentResponse, domain.TicketStatusResolved, domain.TicketStatusCancelled,
	},
	domain.TicketStatusAwaitingStudentResponse: {
		domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusCancelled,
	},
	domain.TicketStatusResolved: {domain.TicketStatusClosed, domain.TicketStatusReopened},
	domain.TicketStatusClosed:   {domain.TicketStatusReopened},
	domain.TicketStatusReopened: {
		domain.TicketStatusAcknowledged, domain.TicketStatusInProgress,
		domain.TicketStatusAwaitingStudentResponse, domain.TicketStatusResolved, domain.TicketStatusCancelled,
	},
	domain.TicketStatusCancelled: {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func checkTransition(current, next domain.TicketStatus) error {
	if isValidTransition(current, next) {
		return nil
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("invalid status transition from %s to %s", current, next),
		map[string]any{"from": current, "to": next},
	)
}
