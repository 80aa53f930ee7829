package handlers

import (
	"net/http"

	"github.com/GiorgiUbiria/textng_payments/internal/httputil"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/GiorgiUbiria/textng_payments/internal/payment"
)

type themeRequest struct {
	ThemeID uint `json:"theme_id"`
	CardID  uint `json:"card_id"`
	BankID  uint `json:"bank_id"`
}

type burnNumberRequest struct {
	NewNumber string      `json:"new_number"`
	Price     money.Input `json:"price"`
	CardID    uint        `json:"card_id"`
	BankID    uint        `json:"bank_id"`
}

// ChargeTheme godoc
// @Summary      Buy a theme
// @Description  Charges a saved card, bank or the caller's connect account for a theme.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string        false  "Replay key"
// @Param        body             body      themeRequest  true   "Theme and source"
// @Success      200              {object}  payment.ThemePurchase
// @Failure      401              {object}  httputil.MessageResponse
// @Failure      422              {object}  httputil.MessageResponse
// @Router       /api/v1/checkout/create_charge_for_theme [post]
func (h *Handler) ChargeTheme(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	var req themeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.purchases.ChargeTheme(r.Context(), u, req.ThemeID, payment.SourceSelector{CardID: req.CardID, BankID: req.BankID})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// ChargeBurnNumber godoc
// @Summary      Buy a new number
// @Description  Burns the caller's current number and assigns the new one.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Replay key"
// @Param        body             body      burnNumberRequest  true   "New number, price and source"
// @Success      200              {object}  payment.BurnPurchase
// @Failure      401              {object}  httputil.MessageResponse
// @Failure      422              {object}  httputil.MessageResponse
// @Router       /api/v1/checkout/create_charge_for_burn_number [post]
func (h *Handler) ChargeBurnNumber(w http.ResponseWriter, r *http.Request) {
	u := h.currentUser(w, r)
	if u == nil {
		return
	}
	var req burnNumberRequest
	if !decode(w, r, &req) {
		return
	}
	price, err := req.Price.Amount()
	if err != nil {
		httputil.WriteMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := h.purchases.ChargeBurnNumber(r.Context(), u, payment.BurnRequest{
		NewNumber: req.NewNumber,
		Price:     price,
		Source:    payment.SourceSelector{CardID: req.CardID, BankID: req.BankID},
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// IntentTheme godoc
// @Summary      Buy a theme with Apple Pay or Google Pay
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string        false  "Replay key"
// @Param        body             body      themeRequest  true   "Theme"
// @Success      200              {object}  payment.IntentPurchase
// @Failure      401              {object}  httputil.MessageResponse
// @Failure      404              {object}  httputil.MessageResponse
// @Failure      422              {object}  httputil.MessageResponse
// @Router       /api/v1/checkout/apple_pay_theme [post]
// @Router       /api/v1/checkout/google_pay_theme [post]
func (h *Handler) IntentTheme(platform payment.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := h.currentUser(w, r)
		if u == nil {
			return
		}
		var req themeRequest
		if !decode(w, r, &req) {
			return
		}

		res, err := h.purchases.IntentTheme(r.Context(), u, platform, req.ThemeID)
		if err != nil {
			writeCheckoutError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

// IntentBurnNumber godoc
// @Summary      Buy a new number with Apple Pay or Google Pay
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Replay key"
// @Param        body             body      burnNumberRequest  true   "New number and price"
// @Success      200              {object}  payment.IntentPurchase
// @Failure      401              {object}  httputil.MessageResponse
// @Failure      404              {object}  httputil.MessageResponse
// @Failure      422              {object}  httputil.MessageResponse
// @Router       /api/v1/checkout/apple_pay_burn_number [post]
// @Router       /api/v1/checkout/google_pay_burn_number [post]
func (h *Handler) IntentBurnNumber(platform payment.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := h.currentUser(w, r)
		if u == nil {
			return
		}
		var req burnNumberRequest
		if !decode(w, r, &req) {
			return
		}
		price, err := req.Price.Amount()
		if err != nil {
			httputil.WriteMessage(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		res, err := h.purchases.IntentBurnNumber(r.Context(), u, platform, req.NewNumber, price)
		if err != nil {
			writeCheckoutError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}
