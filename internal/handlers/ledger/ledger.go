package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/dto"
	"github.com/wareqa/creditledger/pkg/auth"
	"github.com/wareqa/creditledger/pkg/utils"
)

type Service interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	Spend(ctx context.Context, userID string, amount int64, note string) (int64, error)
	ListEntries(ctx context.Context, userID string, kind string, pageToken string, limit int) ([]domain.LedgerEntry, string, error)
}

type LedgerHandler struct {
	ledgerService Service
}

func New(ledgerService Service) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// GetBalance godoc
//
//	@Summary		Get current user balance
//	@Description	Retrieve the current credit balance for the authenticated user.
//	@Tags			Ledger
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.BalanceResponseDTO	"Current balance"
//	@Failure		401	{object}	utils.Response			"User not authorized"
//	@Failure		500	{object}	utils.Response			"Internal server error"
//	@Router			/api/user/balance [get]
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(string)

	balance, err := h.ledgerService.GetBalance(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.BalanceResponseDTO{
		Balance: balance,
	})
}

// Spend godoc
//
//	@Summary		Spend credits
//	@Description	Deduct credits from the authenticated user for a consumed service.
//	@Tags			Ledger
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SpendRequestDTO	true	"Spend request payload"
//	@Success		200		{object}	dto.SpendResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		402		{object}	utils.Response	"Insufficient balance"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/user/spend [post]
func (h *LedgerHandler) Spend(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(string)

	var req dto.SpendRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := h.ledgerService.Spend(r.Context(), userID, req.Amount, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid amount")
		case errors.Is(err, domain.ErrInsufficientFunds):
			utils.RespondWithError(w, http.StatusPaymentRequired, "Insufficient balance")
		case errors.Is(err, domain.ErrAccountNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Account not found")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.SpendResponseDTO{Balance: balance})
}

// GetEntries godoc
//
//	@Summary		Get ledger history
//	@Description	List ledger entries involving the authenticated user, newest first, with keyset pagination.
//	@Tags			Ledger
//	@Security		BearerAuth
//	@Produce		json
//	@Param			kind		query		string	false	"Filter by entry kind"
//	@Param			limit		query		int		false	"Page size (max 100)"
//	@Param			page_token	query		string	false	"Token from a previous page"
//	@Success		200			{object}	dto.ListEntriesResponseDTO
//	@Failure		400			{object}	utils.Response	"Invalid page token"
//	@Failure		401			{object}	utils.Response	"User not authorized"
//	@Failure		500			{object}	utils.Response	"Internal server error"
//	@Router			/api/user/entries [get]
func (h *LedgerHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(string)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, nextToken, err := h.ledgerService.ListEntries(
		r.Context(), userID,
		r.URL.Query().Get("kind"),
		r.URL.Query().Get("page_token"),
		limit,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPageToken) {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid page token")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch entries")
		return
	}

	response := dto.ListEntriesResponseDTO{
		Entries:       make([]dto.LedgerEntryDTO, len(entries)),
		NextPageToken: nextToken,
	}
	for i, e := range entries {
		response.Entries[i] = dto.LedgerEntryDTO{
			ID:          e.ID,
			FromUserID:  e.FromUserID,
			ToUserID:    e.ToUserID,
			Amount:      e.Amount,
			Kind:        string(e.Kind),
			ExternalRef: e.ExternalRef,
			Note:        e.Note,
			CreatedAt:   e.CreatedAt,
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}
