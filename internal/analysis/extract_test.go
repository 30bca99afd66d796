package analysis

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ticketops/triage-service/internal/domain"
)

const completeJSON = `{"summary":"Login broken","priority":"high","level":"L2","helpfulNotes":"Check the session store","relatedSkills":["React","Node.js"]}`

func TestExtractFencedBlock(t *testing.T) {
	raw := "Here is the triage:\n```json\n" + completeJSON + "\n```\nLet me know if you need anything else."

	record, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if record.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want high", record.Priority)
	}
	if record.Level != domain.TicketLevelL2 {
		t.Errorf("level = %q, want L2", record.Level)
	}
	if record.HelpfulNotes != "Check the session store" {
		t.Errorf("helpfulNotes = %q", record.HelpfulNotes)
	}
	if !reflect.DeepEqual(record.RelatedSkills, []string{"React", "Node.js"}) {
		t.Errorf("relatedSkills = %v", record.RelatedSkills)
	}
}

func TestExtractUntaggedFence(t *testing.T) {
	raw := "```\n" + completeJSON + "\n```"
	record, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if record.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want high", record.Priority)
	}
}

func TestExtractBraceBounds(t *testing.T) {
	raw := "Sure! The triage record is " + completeJSON + " as requested."
	record, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if record.Summary != "Login broken" {
		t.Errorf("summary = %q", record.Summary)
	}
}

func TestExtractBareObject(t *testing.T) {
	record, err := Extract("  " + completeJSON + "  ")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if record.Level != domain.TicketLevelL2 {
		t.Errorf("level = %q, want L2", record.Level)
	}
}

func TestExtractBalancedSpanFallback(t *testing.T) {
	// Trailing stray brace defeats the first-to-last bounds strategy;
	// only a depth-balanced scan recovers the object.
	raw := completeJSON + " }"
	record, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if record.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want high", record.Priority)
	}
}

func TestExtractBracesInsideStrings(t *testing.T) {
	raw := `{"summary":"s","priority":"low","level":"L1","helpfulNotes":"wrap in {} braces","relatedSkills":["Go"]} extra }`
	record, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if record.HelpfulNotes != "wrap in {} braces" {
		t.Errorf("helpfulNotes = %q", record.HelpfulNotes)
	}
}

func TestExtractNormalizesUnknownValues(t *testing.T) {
	raw := `{"summary":"s","priority":"URGENT","level":"P1","helpfulNotes":"n","relatedSkills":["Go"]}`
	record, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if record.Priority != domain.TicketPriorityMedium {
		t.Errorf("priority = %q, want medium coercion", record.Priority)
	}
	if record.Level != domain.TicketLevelL1 {
		t.Errorf("level = %q, want L1 coercion", record.Level)
	}
}

func TestExtractRejectsIncompleteRecord(t *testing.T) {
	cases := map[string]string{
		"missing priority": `{"summary":"s","level":"L1","helpfulNotes":"n","relatedSkills":["Go"]}`,
		"missing notes":    `{"summary":"s","priority":"low","level":"L1","relatedSkills":["Go"]}`,
		"empty skills":     `{"summary":"s","priority":"low","level":"L1","helpfulNotes":"n","relatedSkills":[]}`,
	}
	for name, raw := range cases {
		if _, err := Extract(raw); !errors.Is(err, ErrExtractionFailed) {
			t.Errorf("%s: err = %v, want ErrExtractionFailed", name, err)
		}
	}
}

func TestExtractNoJSONAnywhere(t *testing.T) {
	if _, err := Extract("I could not determine a triage for this ticket."); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
	if _, err := Extract(""); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("empty input: err = %v, want ErrExtractionFailed", err)
	}
}
