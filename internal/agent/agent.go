// Package agent holds the draft lifecycle orchestrator: it creates drafts,
// tracks operator approval and performs the one-shot broadcast fan-out.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/compose"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/store"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/transport"
)

// KindPolicy decides which newsletter format a reference date gets. The
// default alternates by date; swap it for a content classifier if that ever
// becomes real product behavior.
type KindPolicy func(ref time.Time) models.Kind

// DateParity alternates formats by civil day number (UTC, days since
// 1970-01-01): even days get the clinical case, odd days the commentary.
func DateParity(ref time.Time) models.Kind {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if (day.Unix()/86400)%2 == 0 {
		return models.KindClinicalCase
	}
	return models.KindNewsCommentary
}

// DeliveryStatus summarizes channel availability for diagnostics. It is a
// pure read of configuration; no network calls happen here.
type DeliveryStatus struct {
	OperatorChannelEnabled bool `json:"operator_channel_enabled"`
	BroadcastEnabled       bool `json:"broadcast_enabled"`
	DestinationCount       int  `json:"destination_count"`
}

// Config carries the orchestration settings.
type Config struct {
	OperatorContact  string
	OperatorEnabled  bool
	BroadcastEnabled bool
	BusinessContext  string
	LookupTimeout    time.Duration
	SendTimeout      time.Duration
	CitationLimit    int
	Kind             KindPolicy
}

// Agent is the delivery orchestrator. All draft mutation flows through it,
// serialized per draft; the issue counter has its own lock discipline.
type Agent struct {
	log       *slog.Logger
	cfg       Config
	store     store.Store
	topics    TopicSource
	citations CitationSource
	operator  transport.Sender
	broadcast *transport.Fanout

	mu        sync.Mutex
	nextIssue int
	locks     map[string]*sync.Mutex
}

// New wires the orchestrator. citations may be nil when no literature index
// is configured; drafts are then composed without citation links.
func New(log *slog.Logger, cfg Config, st store.Store, topics TopicSource, citations CitationSource, operator transport.Sender, broadcast *transport.Fanout) *Agent {
	return &Agent{
		log:       log,
		cfg:       cfg,
		store:     st,
		topics:    topics,
		citations: citations,
		operator:  operator,
		broadcast: broadcast,
		locks:     make(map[string]*sync.Mutex),
	}
}

// ScheduleDraft builds the draft for the given reference date, stores it as
// pending and sends it to the operator with approval instructions.
func (a *Agent) ScheduleDraft(ctx context.Context, ref time.Time) (*models.Draft, error) {
	topics, err := a.topics.Suggest(ctx, a.cfg.BusinessContext)
	if err != nil {
		return nil, fmt.Errorf("topic generation: %w", err)
	}

	kind := a.kindPolicy()(ref)
	issue := a.issueFor(ref)
	citations := a.lookupCitations(ctx, topics)

	draft := &models.Draft{
		ID:            a.draftID(ctx, ref),
		ReferenceDate: ref,
		Topics:        topics,
		Kind:          kind,
		Content: compose.Render(compose.Input{
			Kind:        kind,
			IssueNumber: issue,
			Topics:      topics,
			Citations:   citations,
		}),
		ApprovalState: models.StatePending,
		IssueNumber:   issue,
	}

	if err := a.store.Put(ctx, draft); err != nil {
		return nil, fmt.Errorf("store draft: %w", err)
	}

	a.notifyOperator(ctx, approvalRequest(draft))
	a.log.Info("draft scheduled",
		slog.String("draft_id", draft.ID),
		slog.String("kind", string(draft.Kind)),
		slog.Int("issue", issue),
	)
	return draft, nil
}

// RecordApproval moves a pending draft into its terminal state. Approval
// triggers exactly one broadcast fan-out; calling again on a terminal draft
// fails with ErrInvalidState and never dispatches a second time.
func (a *Agent) RecordApproval(ctx context.Context, id string, approved bool) (*models.Draft, []models.DeliveryOutcome, error) {
	lock := a.draftLock(id)
	lock.Lock()
	defer lock.Unlock()

	draft, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if draft.ApprovalState.Terminal() {
		return nil, nil, fmt.Errorf("%w: %s is already %s", ErrInvalidState, id, draft.ApprovalState)
	}

	if !approved {
		draft.ApprovalState = models.StateRejected
		if err := a.store.Update(ctx, draft); err != nil {
			return nil, nil, fmt.Errorf("update draft: %w", err)
		}
		a.notifyOperator(ctx, fmt.Sprintf(
			"Draft %s reprovado. Posso gerar nova versão mantendo o mesmo formato.", id))
		a.log.Info("draft rejected", slog.String("draft_id", id))
		return draft, nil, nil
	}

	draft.ApprovalState = models.StateApproved
	if err := a.store.Update(ctx, draft); err != nil {
		return nil, nil, fmt.Errorf("update draft: %w", err)
	}
	a.advanceIssue(draft.IssueNumber)

	// Approval and delivery are decoupled: the state stays approved even if
	// every send fails. Failures are reported, never rolled back.
	outcomes := a.broadcast.Dispatch(ctx, draft.Content)
	a.notifyOperator(ctx, dispatchSummary(draft, outcomes))
	a.log.Info("draft dispatched",
		slog.String("draft_id", id),
		slog.Int("delivered", models.Delivered(outcomes)),
		slog.Int("destinations", len(outcomes)),
	)
	return draft, outcomes, nil
}

// Regenerate re-renders a pending draft with its original topics, kind and
// issue number, then re-notifies the operator.
func (a *Agent) Regenerate(ctx context.Context, id string) (*models.Draft, error) {
	lock := a.draftLock(id)
	lock.Lock()
	defer lock.Unlock()

	draft, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.ApprovalState != models.StatePending {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidState, id, draft.ApprovalState)
	}

	citations := a.lookupCitations(ctx, draft.Topics)
	draft.Content = compose.Render(compose.Input{
		Kind:        draft.Kind,
		IssueNumber: draft.IssueNumber,
		Topics:      draft.Topics,
		Citations:   citations,
	})
	if err := a.store.Update(ctx, draft); err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}

	a.notifyOperator(ctx, fmt.Sprintf("Nova versão do draft %s:\n\n%s", id, draft.Content))
	a.log.Info("draft regenerated", slog.String("draft_id", id))
	return draft, nil
}

// TestDelivery pushes a diagnostic message through the broadcast fan-out
// without touching any draft.
func (a *Agent) TestDelivery(ctx context.Context) ([]models.DeliveryOutcome, error) {
	if !a.cfg.BroadcastEnabled || a.broadcast.Destinations() == 0 {
		return nil, fmt.Errorf("broadcast channel disabled or no destinations configured")
	}
	text := fmt.Sprintf("Teste de entrega: Doses de Farmacologia (%s)",
		time.Now().UTC().Format(time.RFC3339))
	return a.broadcast.Dispatch(ctx, text), nil
}

// Status reports channel availability for the control surface.
func (a *Agent) Status() DeliveryStatus {
	return DeliveryStatus{
		OperatorChannelEnabled: a.cfg.OperatorEnabled,
		BroadcastEnabled:       a.cfg.BroadcastEnabled,
		DestinationCount:       a.broadcast.Destinations(),
	}
}

func (a *Agent) lookupCitations(ctx context.Context, topics []string) []models.Citation {
	if a.citations == nil || len(topics) == 0 {
		return nil
	}
	limit := a.cfg.CitationLimit
	if limit <= 0 {
		limit = 3
	}
	timeout := a.cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.citations.Citations(lookupCtx, topics[0], limit)
}

// draftID derives the deterministic per-day id. A same-day rerun gets a
// suffixed id so an existing draft is never clobbered.
func (a *Agent) draftID(ctx context.Context, ref time.Time) string {
	id := "draft-" + ref.Format("2006-01-02")
	if _, err := a.store.Get(ctx, id); err != nil {
		return id
	}
	return id + "-" + uuid.NewString()[:8]
}

// issueFor returns the next issue number: the ISO week of the reference date
// until the first approval, the advanced counter afterwards.
func (a *Agent) issueFor(ref time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nextIssue > 0 {
		return a.nextIssue
	}
	_, week := ref.ISOWeek()
	return week
}

func (a *Agent) advanceIssue(approved int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if approved+1 > a.nextIssue {
		a.nextIssue = approved + 1
	}
}

func (a *Agent) draftLock(id string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[id]
	if !ok {
		l = &sync.Mutex{}
		a.locks[id] = l
	}
	return l
}

func (a *Agent) kindPolicy() KindPolicy {
	if a.cfg.Kind != nil {
		return a.cfg.Kind
	}
	return DateParity
}

func (a *Agent) notifyOperator(ctx context.Context, text string) {
	if !a.cfg.OperatorEnabled {
		return
	}
	timeout := a.cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !a.operator.Send(sendCtx, a.cfg.OperatorContact, text) {
		a.log.Warn("operator notification failed")
	}
}

func approvalRequest(d *models.Draft) string {
	var b strings.Builder
	b.WriteString("Sugestões de temas do dia:\n")
	for _, t := range d.Topics {
		b.WriteString("- " + t + "\n")
	}
	fmt.Fprintf(&b, "\nFormato escolhido hoje: %s\n\n", d.Kind)
	fmt.Fprintf(&b, "Newsletter pronta para aprovação:\n\n%s\n\n", d.Content)
	fmt.Fprintf(&b, "Para aprovar: POST /approval {\"draft_id\":%q,\"approved\":true}", d.ID)
	return b.String()
}

func dispatchSummary(d *models.Draft, outcomes []models.DeliveryOutcome) string {
	var failed []string
	for _, o := range outcomes {
		if !o.OK {
			failed = append(failed, o.Destination)
		}
	}
	if len(failed) == 0 {
		return fmt.Sprintf("Disparo concluído para %d grupo(s). Draft: %s", len(outcomes), d.ID)
	}
	return fmt.Sprintf(
		"Disparo parcial do draft %s: %d de %d grupo(s) receberam. Falhou em: %s. Copie o texto e envie manualmente para esses grupos.",
		d.ID, models.Delivered(outcomes), len(outcomes), strings.Join(failed, ", "))
}
