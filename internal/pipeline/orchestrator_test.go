package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/analysis"
	"github.com/ticketops/triage-service/internal/assign"
	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/observability"
	"github.com/ticketops/triage-service/internal/repository"
)

type fakeStore struct {
	tickets     map[string]*domain.Ticket
	getCalls    int
	patchCalls  int
	failPatches int
}

func (s *fakeStore) GetTicket(_ context.Context, id string) (*domain.Ticket, error) {
	s.getCalls++
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (s *fakeStore) PatchTicket(_ context.Context, id string, patch repository.TicketPatch) error {
	s.patchCalls++
	if s.failPatches > 0 {
		s.failPatches--
		return errors.New("write failed")
	}
	ticket, ok := s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.Level != nil {
		ticket.Level = *patch.Level
	}
	if patch.HelpfulNotes != nil {
		ticket.HelpfulNotes = *patch.HelpfulNotes
	}
	if patch.RelatedSkills != nil {
		ticket.RelatedSkills = *patch.RelatedSkills
	}
	if patch.AssigneeID != nil {
		ticket.AssigneeID = patch.AssigneeID
	}
	return nil
}

type fakeDirectory struct {
	pool []domain.User
}

func (d fakeDirectory) ListAssignable(context.Context) ([]domain.User, error) {
	return d.pool, nil
}

type fakeAnalyzer struct {
	raw string
	err error
}

func (a fakeAnalyzer) Analyze(context.Context, string, string) (string, error) {
	return a.raw, a.err
}

type fakeSelector struct {
	winner     *domain.User
	err        error
	gotSkills  []string
	gotLevel   domain.TicketLevel
	selectCall int
}

func (s *fakeSelector) Select(_ context.Context, requiredSkills []string, level domain.TicketLevel, _ []domain.User) (*domain.User, []assign.ScoreEntry, error) {
	s.selectCall++
	s.gotSkills = requiredSkills
	s.gotLevel = level
	return s.winner, nil, s.err
}

type notifyCall struct {
	address, subject, body string
}

type fakeNotifier struct {
	calls []notifyCall
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, address, subject, body string) error {
	n.calls = append(n.calls, notifyCall{address, subject, body})
	return n.err
}

func newTicket(id string) *domain.Ticket {
	return &domain.Ticket{
		ID:          id,
		Title:       "Login page crashes",
		Description: "Stack trace on submit",
		Status:      domain.TicketStatusPending,
		Priority:    domain.TicketPriorityMedium,
		Level:       domain.TicketLevelL1,
	}
}

type testDeps struct {
	store    *fakeStore
	selector *fakeSelector
	notifier *fakeNotifier
}

func newTestOrchestrator(analyzer analysis.Client, deps testDeps) *Orchestrator {
	if deps.store == nil {
		deps.store = &fakeStore{tickets: map[string]*domain.Ticket{}}
	}
	if deps.selector == nil {
		winner := domain.User{ID: "h1", Email: "h1@example.com", Role: domain.RoleHandler}
		deps.selector = &fakeSelector{winner: &winner}
	}
	if deps.notifier == nil {
		deps.notifier = &fakeNotifier{}
	}
	return NewOrchestrator(Dependencies{
		Storage:   deps.store,
		Directory: fakeDirectory{pool: []domain.User{{ID: "h1"}}},
		Analyzer:  analyzer,
		Selector:  deps.selector,
		Notifier:  deps.notifier,
		Metrics:   observability.NewMetrics(),
		Logger:    zap.NewNop(),
	})
}

func TestRunFullSuccess(t *testing.T) {
	store := &fakeStore{tickets: map[string]*domain.Ticket{"t1": newTicket("t1")}}
	winner := domain.User{ID: "h1", Email: "dev@example.com", Role: domain.RoleHandler}
	selector := &fakeSelector{winner: &winner}
	notifier := &fakeNotifier{}
	raw := "```json\n{\"summary\":\"crash\",\"priority\":\"high\",\"level\":\"L2\",\"helpfulNotes\":\"Check the form handler\",\"relatedSkills\":[\"React\"]}\n```"
	o := newTestOrchestrator(fakeAnalyzer{raw: raw}, testDeps{store: store, selector: selector, notifier: notifier})

	if err := o.Run(context.Background(), "t1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	ticket := store.tickets["t1"]
	if ticket.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want IN_PROGRESS", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityHigh || ticket.Level != domain.TicketLevelL2 {
		t.Errorf("triage = %s/%s, want high/L2", ticket.Priority, ticket.Level)
	}
	if ticket.HelpfulNotes != "Check the form handler" {
		t.Errorf("helpfulNotes = %q", ticket.HelpfulNotes)
	}
	if ticket.AssigneeID == nil || *ticket.AssigneeID != "h1" {
		t.Errorf("assigneeID = %v, want h1", ticket.AssigneeID)
	}
	// Selection sees the persisted triage, not the pre-analysis state.
	if !reflect.DeepEqual(selector.gotSkills, []string{"React"}) {
		t.Errorf("selector skills = %v", selector.gotSkills)
	}
	if selector.gotLevel != domain.TicketLevelL2 {
		t.Errorf("selector level = %q", selector.gotLevel)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("notify calls = %d, want 1", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.address != "dev@example.com" {
		t.Errorf("notify address = %q", call.address)
	}
	if call.subject != "Ticket Assigned" {
		t.Errorf("notify subject = %q", call.subject)
	}
	if want := "A new ticket is assigned to you: Login page crashes"; call.body != want {
		t.Errorf("notify body = %q", call.body)
	}
}

func TestRunEngineUnavailableUsesDefaults(t *testing.T) {
	ticket := newTicket("t1")
	ticket.HelpfulNotes = "prior notes"
	ticket.RelatedSkills = []string{"Go"}
	store := &fakeStore{tickets: map[string]*domain.Ticket{"t1": ticket}}
	o := newTestOrchestrator(fakeAnalyzer{err: analysis.ErrEngineUnavailable}, testDeps{store: store})

	if err := o.Run(context.Background(), "t1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := store.tickets["t1"]
	if got.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want IN_PROGRESS", got.Status)
	}
	if got.Priority != domain.TicketPriorityMedium || got.Level != domain.TicketLevelL1 {
		t.Errorf("triage = %s/%s, want medium/L1 defaults", got.Priority, got.Level)
	}
	// Default triage never clobbers notes or skills.
	if got.HelpfulNotes != "prior notes" || !reflect.DeepEqual(got.RelatedSkills, []string{"Go"}) {
		t.Errorf("fallback overwrote notes/skills: %q %v", got.HelpfulNotes, got.RelatedSkills)
	}
	if got.AssigneeID == nil {
		t.Error("default triage should still reach assignment")
	}
}

func TestRunExtractionFailureUsesDefaults(t *testing.T) {
	store := &fakeStore{tickets: map[string]*domain.Ticket{"t1": newTicket("t1")}}
	o := newTestOrchestrator(fakeAnalyzer{raw: "I cannot produce a triage for this."}, testDeps{store: store})

	if err := o.Run(context.Background(), "t1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got := store.tickets["t1"]
	if got.Status != domain.TicketStatusInProgress || got.Priority != domain.TicketPriorityMedium {
		t.Errorf("ticket = %s/%s, want IN_PROGRESS/medium", got.Status, got.Priority)
	}
}

func TestRunNoCandidateLeavesUnassigned(t *testing.T) {
	store := &fakeStore{tickets: map[string]*domain.Ticket{"t1": newTicket("t1")}}
	selector := &fakeSelector{err: assign.ErrNoCandidate}
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(fakeAnalyzer{err: analysis.ErrEngineUnavailable}, testDeps{store: store, selector: selector, notifier: notifier})

	if err := o.Run(context.Background(), "t1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if store.tickets["t1"].AssigneeID != nil {
		t.Error("ticket should stay unassigned")
	}
	if len(notifier.calls) != 0 {
		t.Errorf("notify calls = %d, want 0", len(notifier.calls))
	}
}

func TestRunNotifierFailureSwallowed(t *testing.T) {
	store := &fakeStore{tickets: map[string]*domain.Ticket{"t1": newTicket("t1")}}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	o := newTestOrchestrator(fakeAnalyzer{err: analysis.ErrEngineUnavailable}, testDeps{store: store, notifier: notifier})

	if err := o.Run(context.Background(), "t1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if store.tickets["t1"].AssigneeID == nil {
		t.Error("notification failure must not revert assignment")
	}
}

func TestRunWithRetryMissingTicketAborts(t *testing.T) {
	store := &fakeStore{tickets: map[string]*domain.Ticket{}}
	o := newTestOrchestrator(fakeAnalyzer{}, testDeps{store: store})

	if ok := o.RunWithRetry(context.Background(), "absent"); ok {
		t.Fatal("RunWithRetry = true for missing ticket")
	}
	if store.getCalls != 1 {
		t.Errorf("getCalls = %d, want 1 (no retry on not-found)", store.getCalls)
	}
}

func TestRunWithRetryRecoversFromTransientFailure(t *testing.T) {
	store := &fakeStore{
		tickets:     map[string]*domain.Ticket{"t1": newTicket("t1")},
		failPatches: 2,
	}
	o := newTestOrchestrator(fakeAnalyzer{err: analysis.ErrEngineUnavailable}, testDeps{store: store})

	if ok := o.RunWithRetry(context.Background(), "t1"); !ok {
		t.Fatal("RunWithRetry = false, want recovery on third attempt")
	}
	if store.tickets["t1"].Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want IN_PROGRESS", store.tickets["t1"].Status)
	}
}

func TestRunWithRetryExhaustsBudget(t *testing.T) {
	store := &fakeStore{
		tickets:     map[string]*domain.Ticket{"t1": newTicket("t1")},
		failPatches: 100,
	}
	o := newTestOrchestrator(fakeAnalyzer{err: analysis.ErrEngineUnavailable}, testDeps{store: store})

	if ok := o.RunWithRetry(context.Background(), "t1"); ok {
		t.Fatal("RunWithRetry = true, want exhausted budget")
	}
	if store.patchCalls != 3 {
		t.Errorf("patchCalls = %d, want one per attempt", store.patchCalls)
	}
}

func TestRunRestoresPendingBeforeAnalysis(t *testing.T) {
	ticket := newTicket("t1")
	ticket.Status = domain.TicketStatusResolved
	store := &fakeStore{tickets: map[string]*domain.Ticket{"t1": ticket}}
	o := newTestOrchestrator(fakeAnalyzer{err: analysis.ErrEngineUnavailable}, testDeps{store: store})

	if err := o.Run(context.Background(), "t1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// markPending writes first, then analysis advances the ticket.
	if store.tickets["t1"].Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want IN_PROGRESS", store.tickets["t1"].Status)
	}
	if store.patchCalls < 2 {
		t.Errorf("patchCalls = %d, want pending patch plus triage patch", store.patchCalls)
	}
}
