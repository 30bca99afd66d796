package assign

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/domain"
)

type fakeWorkloads struct {
	counts map[string]int
	err    error
}

func (f fakeWorkloads) OpenTicketCount(_ context.Context, userID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[userID], nil
}

func handler(id string, skills ...string) domain.User {
	return domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleHandler, Skills: skills}
}

func TestSelectEmptyPool(t *testing.T) {
	scorer := NewScorer(fakeWorkloads{}, zap.NewNop())
	_, _, err := scorer.Select(context.Background(), []string{"Go"}, domain.TicketLevelL1, nil)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("err = %v, want ErrNoCandidate", err)
	}
}

func TestSelectSkillMatchWins(t *testing.T) {
	scorer := NewScorer(fakeWorkloads{counts: map[string]int{}}, zap.NewNop())
	pool := []domain.User{
		handler("novice"),
		handler("expert", "React", "Node.js", "PostgreSQL", "Docker"),
	}

	winner, entries, err := scorer.Select(context.Background(), []string{"react", "node", "sql"}, domain.TicketLevelL2, pool)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if winner.ID != "expert" {
		t.Fatalf("winner = %q, want expert", winner.ID)
	}
	// react->React, node->Node.js, sql->PostgreSQL: three bidirectional
	// substring matches at 10 points each.
	if got := entries[1].Score; got != 30 {
		t.Errorf("expert score = %d, want 30", got)
	}
	if got := entries[1].MatchedSkills; got != 3 {
		t.Errorf("matched skills = %d, want 3", got)
	}
}

func TestSelectLevelBonuses(t *testing.T) {
	scorer := NewScorer(fakeWorkloads{counts: map[string]int{}}, zap.NewNop())
	senior := handler("senior", "a", "b", "c", "d", "e")
	junior := handler("junior", "a", "b")
	admin := domain.User{ID: "admin", Role: domain.RoleAdmin, Skills: []string{"a", "b", "c", "d", "e"}}

	winner, entries, err := scorer.Select(context.Background(), nil, domain.TicketLevelL3, []domain.User{junior, senior, admin})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	// Admin gets the breadth bonus plus the complex-ticket bonus.
	if winner.ID != "admin" {
		t.Errorf("L3 winner = %q, want admin", winner.ID)
	}
	if entries[1].Score != seniorBreadthBonus {
		t.Errorf("senior score = %d, want %d", entries[1].Score, seniorBreadthBonus)
	}
	if entries[2].Score != seniorBreadthBonus+adminComplexBonus {
		t.Errorf("admin score = %d, want %d", entries[2].Score, seniorBreadthBonus+adminComplexBonus)
	}

	winner, entries, err = scorer.Select(context.Background(), nil, domain.TicketLevelL1, []domain.User{senior, junior})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if winner.ID != "junior" {
		t.Errorf("L1 winner = %q, want junior", winner.ID)
	}
	if entries[1].Score != juniorFitBonus {
		t.Errorf("junior score = %d, want %d", entries[1].Score, juniorFitBonus)
	}
}

func TestSelectWorkloadPenalty(t *testing.T) {
	scorer := NewScorer(fakeWorkloads{counts: map[string]int{"busy": 2, "free": 0}}, zap.NewNop())
	pool := []domain.User{
		handler("busy", "Go", "extra", "more", "yet"),
		handler("free", "Go", "extra", "more", "yet"),
	}

	winner, entries, err := scorer.Select(context.Background(), []string{"Go"}, domain.TicketLevelL2, pool)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if winner.ID != "free" {
		t.Fatalf("winner = %q, want free", winner.ID)
	}
	if entries[0].Score != skillMatchPoints-2*workloadPenalty {
		t.Errorf("busy score = %d", entries[0].Score)
	}
}

func TestSelectFallsBackToLeastLoaded(t *testing.T) {
	scorer := NewScorer(fakeWorkloads{counts: map[string]int{"a": 3, "b": 1, "c": 2}}, zap.NewNop())
	pool := []domain.User{handler("a"), handler("b"), handler("c")}

	// No required skills and L2 means every score is non-positive, so
	// the least-loaded candidate wins.
	winner, _, err := scorer.Select(context.Background(), nil, domain.TicketLevelL2, pool)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if winner.ID != "b" {
		t.Fatalf("winner = %q, want b", winner.ID)
	}
}

func TestSelectTiesBreakByInputOrder(t *testing.T) {
	scorer := NewScorer(fakeWorkloads{counts: map[string]int{}}, zap.NewNop())
	pool := []domain.User{
		handler("first", "Go", "extra", "more", "yet"),
		handler("second", "Go", "extra", "more", "yet"),
	}

	winner, _, err := scorer.Select(context.Background(), []string{"Go"}, domain.TicketLevelL2, pool)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if winner.ID != "first" {
		t.Fatalf("winner = %q, want first (stable tie-break)", winner.ID)
	}

	// Zero-score path too.
	winner, _, err = scorer.Select(context.Background(), nil, domain.TicketLevelL2, []domain.User{handler("x"), handler("y")})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if winner.ID != "x" {
		t.Fatalf("winner = %q, want x (stable tie-break)", winner.ID)
	}
}

func TestSelectWorkloadErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	scorer := NewScorer(fakeWorkloads{err: boom}, zap.NewNop())
	_, _, err := scorer.Select(context.Background(), nil, domain.TicketLevelL1, []domain.User{handler("a")})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped db error", err)
	}
}
