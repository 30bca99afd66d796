package domain

import "testing"

func TestNormalizePriority(t *testing.T) {
	cases := map[string]TicketPriority{
		"low":      TicketPriorityLow,
		"medium":   TicketPriorityMedium,
		"high":     TicketPriorityHigh,
		"urgent":   TicketPriorityMedium,
		"HIGH":     TicketPriorityMedium,
		"":         TicketPriorityMedium,
		"critical": TicketPriorityMedium,
	}
	for raw, want := range cases {
		if got := NormalizePriority(raw); got != want {
			t.Errorf("NormalizePriority(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeLevel(t *testing.T) {
	cases := map[string]TicketLevel{
		"L1": TicketLevelL1,
		"L2": TicketLevelL2,
		"L3": TicketLevelL3,
		"l2": TicketLevelL1,
		"P1": TicketLevelL1,
		"":   TicketLevelL1,
	}
	for raw, want := range cases {
		if got := NormalizeLevel(raw); got != want {
			t.Errorf("NormalizeLevel(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestTriageRecordComplete(t *testing.T) {
	full := TriageRecord{
		Priority:      TicketPriorityHigh,
		HelpfulNotes:  "notes",
		RelatedSkills: []string{"Go"},
	}
	if !full.Complete() {
		t.Error("record with all semantic fields should be complete")
	}

	var nilRecord *TriageRecord
	if nilRecord.Complete() {
		t.Error("nil record should not be complete")
	}

	missing := []TriageRecord{
		{HelpfulNotes: "n", RelatedSkills: []string{"Go"}},
		{Priority: TicketPriorityLow, RelatedSkills: []string{"Go"}},
		{Priority: TicketPriorityLow, HelpfulNotes: "n"},
	}
	for i, record := range missing {
		if record.Complete() {
			t.Errorf("case %d: incomplete record reported complete", i)
		}
	}
}

func TestDefaultTriage(t *testing.T) {
	record := DefaultTriage()
	if record.Priority != TicketPriorityMedium || record.Level != TicketLevelL1 {
		t.Errorf("defaults = %s/%s, want medium/L1", record.Priority, record.Level)
	}
	if record.Complete() {
		t.Error("defaults must not count as a complete triage")
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusPending, TicketStatusInProgress, TicketStatusResolved} {
		if !ValidStatus(status) {
			t.Errorf("ValidStatus(%q) = false", status)
		}
	}
	if ValidStatus("CLOSED") {
		t.Error(`ValidStatus("CLOSED") = true`)
	}
}
