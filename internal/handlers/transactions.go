package handlers

import (
	"errors"
	"net/http"

	"github.com/GiorgiUbiria/textng_payments/internal/httputil"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/GiorgiUbiria/textng_payments/internal/payment"
)

type topUpRequest struct {
	CardID uint        `json:"card_id"`
	Amount money.Input `json:"amount"`
}

type transferRequest struct {
	ReceiverID uint        `json:"receiver_id"`
	Amount     money.Input `json:"amount"`
}

type withdrawRequest struct {
	Amount money.Input `json:"amount"`
}

// TopUp godoc
// @Summary      Top up the wallet from a saved card
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string        false  "Replay key"
// @Param        body             body      topUpRequest  true   "Card and amount"
// @Success      200              {object}  payment.Receipt
// @Failure      401              {object}  httputil.MessageResponse
// @Failure      422              {object}  consistencyResponse
// @Router       /api/v1/transactions/topup [post]
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	var req topUpRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := walletAmount(w, req.Amount)
	if !ok {
		return
	}

	receipt, err := h.wallet.TopUp(r.Context(), u, req.CardID, amount)
	if err != nil {
		writeWalletError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

// Transfer godoc
// @Summary      Send wallet funds to a contact
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string           false  "Replay key"
// @Param        body             body      transferRequest  true   "Contact and amount"
// @Success      200              {object}  payment.Receipt
// @Failure      401              {object}  httputil.MessageResponse
// @Failure      422              {object}  consistencyResponse
// @Router       /api/v1/transactions/transfer [post]
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := walletAmount(w, req.Amount)
	if !ok {
		return
	}

	receipt, err := h.wallet.Transfer(r.Context(), u, req.ReceiverID, amount)
	if err != nil {
		writeWalletError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

// Withdraw godoc
// @Summary      Pay wallet funds out to the bank account
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string           false  "Replay key"
// @Param        body             body      withdrawRequest  true   "Amount"
// @Success      200              {object}  payment.Receipt
// @Failure      401              {object}  httputil.MessageResponse
// @Failure      422              {object}  consistencyResponse
// @Router       /api/v1/transactions/withdraw [post]
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	var req withdrawRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := walletAmount(w, req.Amount)
	if !ok {
		return
	}

	receipt, err := h.wallet.Withdraw(r.Context(), u, amount)
	if err != nil {
		writeWalletError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

// TransactionHistory godoc
// @Summary      Purchases and wallet movements, newest first
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  store.HistoryEntry
// @Success      204
// @Router       /api/v1/transactions/transaction_history [get]
func (h *Handler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	entries, err := h.wallet.History(r.Context(), u)
	if errors.Is(err, payment.ErrNoHistory) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func walletAmount(w http.ResponseWriter, in money.Input) (money.Amount, bool) {
	amount, err := in.Amount()
	if err != nil {
		httputil.WriteMessage(w, http.StatusUnauthorized, err.Error())
		return 0, false
	}
	return amount, true
}
