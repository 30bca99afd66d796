package domain

// TriageRecord is the structured result recovered from an analysis
// engine response. It is transient: the orchestrator persists its
// fields onto the ticket and discards it.
type TriageRecord struct {
	Summary       string
	Priority      TicketPriority
	Level         TicketLevel
	HelpfulNotes  string
	RelatedSkills []string
}

// Complete reports whether the record carries the three semantic
// fields required for persistence. An incomplete record must not be
// persisted; the orchestrator substitutes defaults instead.
func (r *TriageRecord) Complete() bool {
	if r == nil {
		return false
	}
	return r.Priority != "" && r.HelpfulNotes != "" && len(r.RelatedSkills) > 0
}

// DefaultTriage is what the pipeline persists when analysis or
// extraction fails: a ticket with default triage is still actionable
// by a human.
func DefaultTriage() TriageRecord {
	return TriageRecord{
		Priority: TicketPriorityMedium,
		Level:    TicketLevelL1,
	}
}
