package handlers

import (
	"net/http"

	"github.com/GiorgiUbiria/textng_payments/internal/httputil"
)

type linkResponse struct {
	Link string `json:"link"`
}

type accountResponse struct {
	Account any `json:"account"`
}

// Connect godoc
// @Summary      Create or resume a connect account
// @Tags         stripe_connect
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  payment.ConnectResult
// @Failure      422  {object}  httputil.ErrorResponse
// @Router       /api/v1/stripe_connect/connect [post]
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	res, err := h.connect.Connect(r.Context(), u)
	if err != nil {
		writeConnectError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// BalanceCheck godoc
// @Summary      Connect balance in major units
// @Tags         stripe_connect
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  payment.BalanceSummary
// @Failure      401  {object}  httputil.MessageResponse
// @Failure      422  {object}  httputil.ErrorResponse
// @Router       /api/v1/stripe_connect/balance_check [get]
func (h *Handler) BalanceCheck(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	res, err := h.connect.Balance(r.Context(), u)
	if err != nil {
		writeConnectError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// LoginLink godoc
// @Summary      Connect dashboard login link
// @Tags         stripe_connect
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  linkResponse
// @Failure      401  {object}  httputil.MessageResponse
// @Failure      422  {object}  httputil.ErrorResponse
// @Router       /api/v1/stripe_connect/login_link [get]
func (h *Handler) LoginLink(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	link, err := h.connect.LoginLink(r.Context(), u)
	if err != nil {
		writeConnectError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, linkResponse{Link: link})
}

// Retrieve godoc
// @Summary      Connect account status
// @Tags         stripe_connect
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  httputil.MessageResponse
// @Failure      422  {object}  httputil.ErrorResponse
// @Router       /api/v1/stripe_connect/retrieve [get]
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	acct, err := h.connect.Retrieve(r.Context(), u)
	if err != nil {
		writeConnectError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accountResponse{Account: acct})
}
