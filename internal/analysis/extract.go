package analysis

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/ticketops/triage-service/internal/domain"
)

// ErrExtractionFailed signals that no usable triage record could be
// recovered from the engine response. Syntax failure and a parsed but
// incomplete object both collapse to this error; callers cannot act on
// either differently.
var ErrExtractionFailed = errors.New("no usable triage record in engine response")

// parseOutcome distinguishes the ways a candidate can fail so the
// strategy loop knows whether to keep trying.
type parseOutcome int

const (
	parseFailed parseOutcome = iota
	parsedIncomplete
	parsedComplete
)

// triagePayload mirrors the JSON shape the prompt demands.
type triagePayload struct {
	Summary       string   `json:"summary"`
	Priority      string   `json:"priority"`
	Level         string   `json:"level"`
	HelpfulNotes  string   `json:"helpfulNotes"`
	RelatedSkills []string `json:"relatedSkills"`
}

// A strategy proposes a candidate JSON string from the raw response,
// or reports that it does not apply. Strategies are pure and tried in
// order; a candidate that parses stops the chain.
type strategy func(string) (string, bool)

var strategies = []strategy{
	fencedBlock,
	braceBounds,
	trimmedWhole,
}

var fencedRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// Extract recovers a structured triage record from raw engine output.
// Unknown priority values coerce to medium and unknown levels to L1;
// a parsed object missing priority, helpfulNotes or relatedSkills is
// rejected even though parsing succeeded.
func Extract(raw string) (*domain.TriageRecord, error) {
	for _, s := range strategies {
		candidate, ok := s(raw)
		if !ok {
			continue
		}
		record, outcome := parseCandidate(candidate)
		switch outcome {
		case parsedComplete:
			return record, nil
		case parsedIncomplete:
			return nil, ErrExtractionFailed
		}
	}

	// Last resort: scan the original raw text for the first
	// brace-matched span, in case every strategy above tripped on
	// trailing garbage.
	if candidate, ok := balancedSpan(raw); ok {
		if record, outcome := parseCandidate(candidate); outcome == parsedComplete {
			return record, nil
		}
	}
	return nil, ErrExtractionFailed
}

func parseCandidate(candidate string) (*domain.TriageRecord, parseOutcome) {
	var payload triagePayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, parseFailed
	}
	if payload.Priority == "" || payload.HelpfulNotes == "" || len(payload.RelatedSkills) == 0 {
		return nil, parsedIncomplete
	}
	return &domain.TriageRecord{
		Summary:       payload.Summary,
		Priority:      domain.NormalizePriority(payload.Priority),
		Level:         domain.NormalizeLevel(payload.Level),
		HelpfulNotes:  payload.HelpfulNotes,
		RelatedSkills: payload.RelatedSkills,
	}, parsedComplete
}

// fencedBlock takes the inner content of a triple-backtick block,
// optionally tagged json.
func fencedBlock(raw string) (string, bool) {
	match := fencedRe.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// braceBounds takes the substring from the first '{' to the last '}'.
func braceBounds(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// trimmedWhole proposes the whole response, trimmed.
func trimmedWhole(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// balancedSpan returns the first depth-balanced {...} span, ignoring
// brace characters that appear inside JSON string literals.
func balancedSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
