// Package pipeline holds the lead pipeline state machine and the board that
// groups leads into stage columns and moves them between stages.
package pipeline

import (
	"strings"

	"github.com/charlesng35/leadflow/internal/models"
)

type statusRule struct {
	keywords []string
	status   models.LeadStatus
}

// Order matters: the first matching rule wins.
var statusRules = []statusRule{
	{keywords: []string{"new", "initial"}, status: models.LeadStatusNew},
	{keywords: []string{"contact"}, status: models.LeadStatusContacted},
	{keywords: []string{"qualif"}, status: models.LeadStatusQualified},
	{keywords: []string{"proposal"}, status: models.LeadStatusProposal},
	{keywords: []string{"negotiat"}, status: models.LeadStatusNegotiation},
	{keywords: []string{"won", "closed"}, status: models.LeadStatusClosedWon},
	{keywords: []string{"lost"}, status: models.LeadStatusClosedLost},
}

// DeriveStatus maps a stage display name to a lead status by keyword. It is
// total: names matching no rule map to new.
func DeriveStatus(stageName string) models.LeadStatus {
	name := strings.ToLower(stageName)
	for _, rule := range statusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.status
			}
		}
	}
	return models.LeadStatusNew
}

// StatusFor returns the status a lead takes when it lands in stage. The
// stage's configured mapping wins; the name is only consulted for stages
// defined without one.
func StatusFor(stage models.PipelineStage) models.LeadStatus {
	if stage.Status.Valid() {
		return stage.Status
	}
	return DeriveStatus(stage.Name)
}
