package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/agent"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/config"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/store"
)

type stubOrchestrator struct {
	scheduled   []time.Time
	approvals   []string
	scheduleErr error
	approvalErr error
	testErr     error
}

func (s *stubOrchestrator) ScheduleDraft(_ context.Context, ref time.Time) (*models.Draft, error) {
	if s.scheduleErr != nil {
		return nil, s.scheduleErr
	}
	s.scheduled = append(s.scheduled, ref)
	return &models.Draft{
		ID:            "draft-" + ref.Format("2006-01-02"),
		ReferenceDate: ref,
		Topics:        []string{"a", "b", "c"},
		Kind:          models.KindClinicalCase,
		Content:       strings.Repeat("x", 500),
		ApprovalState: models.StatePending,
		IssueNumber:   2,
	}, nil
}

func (s *stubOrchestrator) RecordApproval(_ context.Context, id string, approved bool) (*models.Draft, []models.DeliveryOutcome, error) {
	if s.approvalErr != nil {
		return nil, nil, s.approvalErr
	}
	s.approvals = append(s.approvals, fmt.Sprintf("%s=%t", id, approved))
	state := models.StateRejected
	if approved {
		state = models.StateApproved
	}
	return &models.Draft{ID: id, ApprovalState: state},
		[]models.DeliveryOutcome{{Destination: "grupo-1", OK: true}}, nil
}

func (s *stubOrchestrator) Regenerate(_ context.Context, id string) (*models.Draft, error) {
	return &models.Draft{ID: id, ApprovalState: models.StatePending, Content: "novo"}, nil
}

func (s *stubOrchestrator) TestDelivery(_ context.Context) ([]models.DeliveryOutcome, error) {
	if s.testErr != nil {
		return nil, s.testErr
	}
	return []models.DeliveryOutcome{{Destination: "grupo-1", OK: true}}, nil
}

func (s *stubOrchestrator) Status() agent.DeliveryStatus {
	return agent.DeliveryStatus{OperatorChannelEnabled: true, BroadcastEnabled: true, DestinationCount: 2}
}

type recordingSender struct {
	sent map[string][]string
}

func (r *recordingSender) Send(_ context.Context, destination, text string) bool {
	if r.sent == nil {
		r.sent = map[string][]string{}
	}
	r.sent[destination] = append(r.sent[destination], text)
	return true
}

func newTestServer(orch *stubOrchestrator) (*server, *recordingSender) {
	sender := &recordingSender{}
	return &server{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:      &config.Server{OperatorChatID: 42},
		agent:    orch,
		operator: sender,
		validate: validator.New(),
	}, sender
}

func TestHandleRunDaily(t *testing.T) {
	orch := &stubOrchestrator{}
	srv, _ := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/run-daily", strings.NewReader(`{"date":"2024-01-08"}`))
	rec := httptest.NewRecorder()
	srv.handleRunDaily(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp scheduleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "draft-2024-01-08", resp.DraftID)
	require.Equal(t, models.KindClinicalCase, resp.Kind)
	require.Len(t, []rune(resp.Preview), previewLen)

	require.Len(t, orch.scheduled, 1)
	require.Equal(t, 8, orch.scheduled[0].Day())
}

func TestHandleRunDailyEmptyBodyDefaultsToToday(t *testing.T) {
	orch := &stubOrchestrator{}
	srv, _ := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/run-daily", strings.NewReader(""))
	rec := httptest.NewRecorder()
	srv.handleRunDaily(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, orch.scheduled, 1)
	require.WithinDuration(t, time.Now().UTC(), orch.scheduled[0], time.Minute)
}

func TestHandleRunDailyBadDate(t *testing.T) {
	srv, _ := newTestServer(&stubOrchestrator{})

	req := httptest.NewRequest(http.MethodPost, "/run-daily", strings.NewReader(`{"date":"08/01/2024"}`))
	rec := httptest.NewRecorder()
	srv.handleRunDaily(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleApproval(t *testing.T) {
	orch := &stubOrchestrator{}
	srv, _ := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/approval",
		strings.NewReader(`{"draft_id":"draft-2024-01-08","approved":true}`))
	rec := httptest.NewRecorder()
	srv.handleApproval(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp approvalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, models.StateApproved, resp.ApprovalState)
	require.Len(t, resp.Outcomes, 1)
	require.Equal(t, []string{"draft-2024-01-08=true"}, orch.approvals)
}

func TestHandleApprovalMissingFields(t *testing.T) {
	orch := &stubOrchestrator{}
	srv, _ := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/approval", strings.NewReader(`{"draft_id":"x"}`))
	rec := httptest.NewRecorder()
	srv.handleApproval(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, orch.approvals)
}

func TestHandleApprovalUnknownDraft(t *testing.T) {
	orch := &stubOrchestrator{approvalErr: store.ErrNotFound}
	srv, _ := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/approval",
		strings.NewReader(`{"draft_id":"draft-nope","approved":true}`))
	rec := httptest.NewRecorder()
	srv.handleApproval(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleApprovalTerminalDraft(t *testing.T) {
	orch := &stubOrchestrator{approvalErr: fmt.Errorf("wrap: %w", agent.ErrInvalidState)}
	srv, _ := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/approval",
		strings.NewReader(`{"draft_id":"draft-2024-01-08","approved":true}`))
	rec := httptest.NewRecorder()
	srv.handleApproval(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(&stubOrchestrator{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp agent.DeliveryStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.OperatorChannelEnabled)
	require.Equal(t, 2, resp.DestinationCount)
}

func TestHandleTestDeliveryFailure(t *testing.T) {
	orch := &stubOrchestrator{testErr: fmt.Errorf("no destinations")}
	srv, _ := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/delivery/test", nil)
	rec := httptest.NewRecorder()
	srv.handleTestDelivery(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func webhookBody(fromID int64, text string) string {
	return fmt.Sprintf(
		`{"update_id":1,"message":{"message_id":1,"from":{"id":%d},"chat":{"id":%d},"text":%q}}`,
		fromID, fromID, text)
}

func (s *server) webhookHandler() http.Handler {
	return s.operatorOnly(http.HandlerFunc(s.handleWebhook))
}

func TestWebhookRejectsUnknownSender(t *testing.T) {
	orch := &stubOrchestrator{}
	srv, sender := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook",
		strings.NewReader(webhookBody(99, "/run-daily")))
	rec := httptest.NewRecorder()
	srv.webhookHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, orch.scheduled)
	require.Contains(t, sender.sent["99"][0], "Acesso restrito")
}

func TestWebhookStatusCommand(t *testing.T) {
	srv, sender := newTestServer(&stubOrchestrator{})

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook",
		strings.NewReader(webhookBody(42, "/status")))
	rec := httptest.NewRecorder()
	srv.webhookHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, sender.sent["42"][0], "Destinos configurados: 2")
}

func TestWebhookRunDailyCommand(t *testing.T) {
	orch := &stubOrchestrator{}
	srv, sender := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook",
		strings.NewReader(webhookBody(42, "/run-daily")))
	rec := httptest.NewRecorder()
	srv.webhookHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, orch.scheduled, 1)
	require.Contains(t, sender.sent["42"][0], "criado")
}

func TestWebhookUnknownCommandGetsHelp(t *testing.T) {
	srv, sender := newTestServer(&stubOrchestrator{})

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook",
		strings.NewReader(webhookBody(42, "bom dia")))
	rec := httptest.NewRecorder()
	srv.webhookHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, sender.sent["42"][0], "Comandos disponíveis")
}

func TestWebhookIgnoresNonMessageUpdates(t *testing.T) {
	orch := &stubOrchestrator{}
	srv, sender := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook",
		strings.NewReader(`{"update_id":1}`))
	rec := httptest.NewRecorder()
	srv.webhookHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, orch.scheduled)
	require.Empty(t, sender.sent)
}
