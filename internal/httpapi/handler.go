// Package httpapi is the HTTP admission boundary. It validates request
// shape, hands accepted transfers to the worker pool, and reports
// backpressure; the monetary outcome itself is never returned
// synchronously.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finflow/transfer-service/internal/domain"
	"github.com/finflow/transfer-service/internal/transfer"
	"github.com/finflow/transfer-service/internal/worker"
)

// Handler exposes the transfer admission and balance endpoints.
type Handler struct {
	coordinator *transfer.Coordinator
	pool        *worker.Pool
	accounts    domain.AccountRepository
	currencies  map[string]struct{}
	log         zerolog.Logger
}

// NewHandler creates a Handler. supportedCurrencies is the accepted
// currency code set; codes are matched case-insensitively after trimming.
func NewHandler(
	coordinator *transfer.Coordinator,
	pool *worker.Pool,
	accounts domain.AccountRepository,
	supportedCurrencies []string,
	log zerolog.Logger,
) *Handler {
	currencies := make(map[string]struct{}, len(supportedCurrencies))
	for _, code := range supportedCurrencies {
		currencies[normalizeCurrency(code)] = struct{}{}
	}
	return &Handler{
		coordinator: coordinator,
		pool:        pool,
		accounts:    accounts,
		currencies:  currencies,
		log:         log,
	}
}

// Router builds the HTTP routing table.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.health)
	r.Post("/transfer", h.submitTransfer)
	r.Get("/accounts/{accountID}/balance", h.getBalance)
	return r
}

type transferRequestBody struct {
	RequestID  string          `json:"request_id"`
	SenderID   string          `json:"sender_id"`
	ReceiverID string          `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// submitTransfer validates the request shape, queues a coordinator
// execution, and replies 202. The transfer outcome arrives later through
// the notification publisher.
func (h *Handler) submitTransfer(w http.ResponseWriter, r *http.Request) {
	var body transferRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Empty participant ids pass through as uuid.Nil: single-sided
	// operations are rejected by the coordinator, not the boundary.
	senderID, err := parseOptionalUUID(body.SenderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sender_id")
		return
	}
	receiverID, err := parseOptionalUUID(body.ReceiverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid receiver_id")
		return
	}

	currency := normalizeCurrency(body.Currency)
	if _, ok := h.currencies[currency]; !ok {
		writeError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	requestID := body.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req := domain.TransferRequest{
		RequestID:  requestID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     body.Amount,
		Currency:   currency,
	}

	err = h.pool.Submit(func(ctx context.Context) {
		h.coordinator.Process(ctx, req)
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrPoolClosed) {
			writeError(w, http.StatusTooManyRequests, "transfer queue is full")
			return
		}
		h.log.Error().Err(err).Msg("failed to submit transfer")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(struct {
		RequestID string `json:"request_id"`
	}{RequestID: requestID})
}

// getBalance reads one account's balance.
func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to get account")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		AccountID string          `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
		Currency  string          `json:"currency"`
	}{
		AccountID: account.ID.String(),
		Balance:   account.Balance,
		Currency:  account.Currency,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func parseOptionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
