package assign

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/domain"
)

// ErrNoCandidate signals an empty candidate pool. It is the only way
// selection declines: low skill match alone never blocks assignment.
var ErrNoCandidate = errors.New("no eligible assignment candidate")

const (
	skillMatchPoints   = 10
	seniorBreadthBonus = 5
	juniorFitBonus     = 3
	adminComplexBonus  = 2
	workloadPenalty    = 2

	// Skill counts that classify a candidate as senior or junior for
	// the level bonuses.
	seniorSkillFloor   = 5
	juniorSkillCeiling = 3
)

// WorkloadCounter reports a handler's current open-ticket count. The
// count is re-read per candidate at scoring time; concurrent pipeline
// runs may race on it, trading exact load balance for simplicity.
type WorkloadCounter interface {
	OpenTicketCount(ctx context.Context, userID string) (int, error)
}

// ScoreEntry is the transient per-candidate scoring result.
type ScoreEntry struct {
	User          domain.User
	Score         int
	MatchedSkills int
	OpenTickets   int
}

// Scorer ranks candidate handlers for a ticket.
type Scorer struct {
	workloads WorkloadCounter
	logger    *zap.Logger
}

// NewScorer constructs the scorer.
func NewScorer(workloads WorkloadCounter, logger *zap.Logger) *Scorer {
	return &Scorer{workloads: workloads, logger: logger}
}

// Select picks the best-qualified candidate for the required skills
// and escalation level. When the top score is strictly positive that
// candidate wins; otherwise the candidate with the fewest open tickets
// does. Ties break by input order in both cases, so a non-empty pool
// always yields a selection.
func (s *Scorer) Select(ctx context.Context, requiredSkills []string, level domain.TicketLevel, candidates []domain.User) (*domain.User, []ScoreEntry, error) {
	if len(candidates) == 0 {
		return nil, nil, ErrNoCandidate
	}

	entries := make([]ScoreEntry, 0, len(candidates))
	for _, candidate := range candidates {
		// Workload queries run sequentially per candidate to keep
		// scoring order deterministic.
		open, err := s.workloads.OpenTicketCount(ctx, candidate.ID)
		if err != nil {
			return nil, nil, err
		}
		entry := scoreCandidate(candidate, requiredSkills, level, open)
		entries = append(entries, entry)

		s.logger.Debug("scored candidate",
			zap.String("user_id", candidate.ID),
			zap.Int("score", entry.Score),
			zap.Int("matched_skills", entry.MatchedSkills),
			zap.Int("open_tickets", entry.OpenTickets),
		)
	}

	byScore := make([]ScoreEntry, len(entries))
	copy(byScore, entries)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Score > byScore[j].Score
	})
	if byScore[0].Score > 0 {
		winner := byScore[0].User
		return &winner, entries, nil
	}

	// No meaningful signal anywhere in the pool: fall back to the
	// least-loaded candidate.
	byLoad := make([]ScoreEntry, len(entries))
	copy(byLoad, entries)
	sort.SliceStable(byLoad, func(i, j int) bool {
		return byLoad[i].OpenTickets < byLoad[j].OpenTickets
	})
	winner := byLoad[0].User
	return &winner, entries, nil
}

func scoreCandidate(candidate domain.User, requiredSkills []string, level domain.TicketLevel, openTickets int) ScoreEntry {
	score := 0
	matched := 0

	for _, required := range requiredSkills {
		if matchesAnySkill(required, candidate.Skills) {
			score += skillMatchPoints
			matched++
		}
	}

	// Breadth signals senior capability; a small skill set steers
	// simple tickets toward junior handlers, preserving senior
	// bandwidth.
	if level == domain.TicketLevelL3 && len(candidate.Skills) >= seniorSkillFloor {
		score += seniorBreadthBonus
	} else if level == domain.TicketLevelL1 && len(candidate.Skills) <= juniorSkillCeiling {
		score += juniorFitBonus
	}

	if candidate.Role == domain.RoleAdmin && level == domain.TicketLevelL3 {
		score += adminComplexBonus
	}

	score -= openTickets * workloadPenalty

	return ScoreEntry{
		User:          candidate,
		Score:         score,
		MatchedSkills: matched,
		OpenTickets:   openTickets,
	}
}

// matchesAnySkill checks every candidate skill for a case-insensitive
// substring match in either direction, stopping at the first hit so a
// required skill is never counted twice.
func matchesAnySkill(required string, skills []string) bool {
	req := strings.ToLower(required)
	for _, skill := range skills {
		have := strings.ToLower(skill)
		if strings.Contains(have, req) || strings.Contains(req, have) {
			return true
		}
	}
	return false
}
