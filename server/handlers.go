package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/agent"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/command"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/config"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/transport"
)

const previewLen = 220

// orchestrator is the slice of the agent the handlers need.
type orchestrator interface {
	ScheduleDraft(ctx context.Context, ref time.Time) (*models.Draft, error)
	RecordApproval(ctx context.Context, id string, approved bool) (*models.Draft, []models.DeliveryOutcome, error)
	Regenerate(ctx context.Context, id string) (*models.Draft, error)
	TestDelivery(ctx context.Context) ([]models.DeliveryOutcome, error)
	Status() agent.DeliveryStatus
}

type server struct {
	log      *slog.Logger
	cfg      *config.Server
	agent    orchestrator
	operator transport.Sender
	validate *validator.Validate
}

type errorResponse struct {
	Error string `json:"error"`
}

type scheduleResponse struct {
	DraftID string      `json:"draft_id"`
	Kind    models.Kind `json:"kind"`
	Topics  []string    `json:"topics"`
	Preview string      `json:"preview"`
}

type approvalRequest struct {
	DraftID  string `json:"draft_id" validate:"required"`
	Approved *bool  `json:"approved" validate:"required"`
}

type approvalResponse struct {
	DraftID       string                   `json:"draft_id"`
	ApprovalState models.ApprovalState     `json:"approval_state"`
	Outcomes      []models.DeliveryOutcome `json:"outcomes,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRunDaily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	ref, err := parseReferenceDate(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	draft, err := s.agent.ScheduleDraft(ctx, ref)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		DraftID: draft.ID,
		Kind:    draft.Kind,
		Topics:  draft.Topics,
		Preview: truncate(draft.Content, previewLen),
	})
}

func (s *server) handleApproval(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	draft, outcomes, err := s.agent.RecordApproval(ctx, req.DraftID, *req.Approved)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, approvalResponse{
		DraftID:       draft.ID,
		ApprovalState: draft.ApprovalState,
		Outcomes:      outcomes,
	})
}

func (s *server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req struct {
		DraftID string `json:"draft_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	draft, err := s.agent.Regenerate(ctx, req.DraftID)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		DraftID: draft.ID,
		Kind:    draft.Kind,
		Topics:  draft.Topics,
		Preview: truncate(draft.Content, previewLen),
	})
}

func (s *server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Status())
}

func (s *server) handleTestDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	outcomes, err := s.agent.TestDelivery(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

type ctxKey int

const updateKey ctxKey = iota

// operatorOnly decodes the webhook update and gates it on the allow-listed
// operator identity. Anyone else gets an access-denied reply and no state
// mutation happens downstream.
func (s *server) operatorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid update"})
			return
		}

		msg := update.Message
		if msg == nil || msg.From == nil {
			// Nothing actionable; ack so the webhook is not retried.
			w.WriteHeader(http.StatusOK)
			return
		}

		if msg.From.ID != s.cfg.OperatorChatID {
			s.log.Warn("webhook from unknown sender", slog.Int64("from", msg.From.ID))
			s.reply(r.Context(), msg.Chat.ID, "⛔ Acesso restrito.")
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx := context.WithValue(r.Context(), updateKey, &update)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update := r.Context().Value(updateKey).(*tgbotapi.Update)
	msg := update.Message

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	switch cmd := command.Parse(msg.Text); cmd {
	case command.Start:
		s.reply(ctx, msg.Chat.ID, command.HelpText)

	case command.Status:
		st := s.agent.Status()
		s.reply(ctx, msg.Chat.ID, fmt.Sprintf(
			"Canal do operador: %s\nBroadcast: %s\nDestinos configurados: %d",
			onOff(st.OperatorChannelEnabled), onOff(st.BroadcastEnabled), st.DestinationCount))

	case command.TestDelivery:
		outcomes, err := s.agent.TestDelivery(ctx)
		if err != nil {
			s.reply(ctx, msg.Chat.ID, "Teste falhou: "+err.Error())
			break
		}
		s.reply(ctx, msg.Chat.ID, fmt.Sprintf(
			"Teste enviado: %d de %d destino(s) receberam.",
			models.Delivered(outcomes), len(outcomes)))

	case command.RunDaily:
		draft, err := s.agent.ScheduleDraft(ctx, time.Now().UTC())
		if err != nil {
			s.reply(ctx, msg.Chat.ID, "Erro ao gerar o draft: "+err.Error())
			break
		}
		s.reply(ctx, msg.Chat.ID, fmt.Sprintf(
			"Draft %s criado (%s). Confira a mensagem de aprovação.", draft.ID, draft.Kind))

	case command.Unknown:
		s.reply(ctx, msg.Chat.ID, command.HelpText)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *server) reply(ctx context.Context, chatID int64, text string) {
	if !s.operator.Send(ctx, formatChatID(chatID), text) {
		s.log.Warn("webhook reply failed", slog.Int64("chat", chatID))
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, agent.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseReferenceDate reads the optional {"date":"YYYY-MM-DD"} body. An empty
// body means today.
func parseReferenceDate(body io.Reader) (time.Time, error) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return time.Time{}, fmt.Errorf("invalid payload")
	}
	if req.Date == "" {
		return time.Now().UTC(), nil
	}
	ref, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", req.Date)
	}
	return ref, nil
}

func formatChatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func onOff(enabled bool) string {
	if enabled {
		return "ativo"
	}
	return "desativado"
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
