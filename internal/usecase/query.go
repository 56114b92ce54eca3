package usecase

import (
	"strings"

	"supportkb/internal/domain"
)

// BuildQuery derives the search text for a ticket: key issues, then the
// customer intent, then error codes when there are any.
func BuildQuery(ticket domain.TicketAnalysis) string {
	query := strings.Join(ticket.KeyIssues, " ") + " " + ticket.CustomerIntent
	if len(ticket.ErrorCodes) > 0 {
		query += " " + strings.Join(ticket.ErrorCodes, " ")
	}
	return query
}
