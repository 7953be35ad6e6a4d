package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"assessment-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AssessmentEngine is the use-case surface the transports depend on.
type AssessmentEngine interface {
	Assemble(ctx context.Context, req domain.AssembleRequest) (domain.AssembledTest, error)
	CreateAttempt(ctx context.Context, userID, testID string) (domain.AttemptStarted, error)
	NextQuestion(ctx context.Context, userID, attemptID string) (domain.NextQuestion, error)
	Record(ctx context.Context, userID, attemptID, testQuestionID, value string) (domain.AnswerReceipt, error)
	Finalize(ctx context.Context, userID, attemptID string, abandoned bool) (domain.FinalizationResult, error)
	History(ctx context.Context, userID string) ([]domain.AttemptSummary, error)
	Stats(ctx context.Context, userID, attemptID string) (domain.AttemptStats, error)
}

// Handler serves the JSON API.
type Handler struct {
	engine  AssessmentEngine
	metrics *Metrics
	log     *zap.Logger
}

func NewHandler(engine AssessmentEngine, metrics *Metrics, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{engine: engine, metrics: metrics, log: log}
}

type createAttemptRequest struct {
	TestID string `json:"testId"`
}

type submitAnswerRequest struct {
	TestQuestionID string `json:"testQuestionId"`
	Value          string `json:"value"`
}

type finalizeRequest struct {
	Abandoned bool `json:"abandoned"`
}

func (h *Handler) Assemble(w http.ResponseWriter, r *http.Request) {
	var req domain.AssembleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, string(domain.KindInvalidInput), "invalid JSON body")
		return
	}
	req.UserID = UserID(r.Context())

	test, err := h.engine.Assemble(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	h.metrics.observeAssembled(test)
	writeOK(w, r, http.StatusCreated, test)
}

func (h *Handler) CreateAttempt(w http.ResponseWriter, r *http.Request) {
	var req createAttemptRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, string(domain.KindInvalidInput), "invalid JSON body")
		return
	}
	started, err := h.engine.CreateAttempt(r.Context(), UserID(r.Context()), req.TestID)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeOK(w, r, http.StatusCreated, started)
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	history, err := h.engine.History(r.Context(), UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeOK(w, r, http.StatusOK, history)
}

func (h *Handler) AttemptStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeOK(w, r, http.StatusOK, stats)
}

func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	next, err := h.engine.NextQuestion(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeOK(w, r, http.StatusOK, next)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, string(domain.KindInvalidInput), "invalid JSON body")
		return
	}
	receipt, err := h.engine.Record(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), req.TestQuestionID, req.Value)
	h.metrics.observeAnswer(receipt, err)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeOK(w, r, http.StatusCreated, receipt)
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, string(domain.KindInvalidInput), "invalid JSON body")
		return
	}
	res, err := h.engine.Finalize(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), req.Abandoned)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	h.metrics.observeFinalized(res)
	writeOK(w, r, http.StatusOK, res)
}

// decodeJSON decodes the request body into dst. An empty body is accepted
// only when optional is set.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return io.EOF
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
