package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/GiorgiUbiria/textng_payments/configs"
	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/httputil"
	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	appmw "github.com/GiorgiUbiria/textng_payments/internal/middleware"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/payment"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	store     *store.Store
	purchases *payment.Purchases
	wallet    *payment.Wallet
	connect   *payment.Connect
}

func New(st *store.Store, purchases *payment.Purchases, wallet *payment.Wallet, connect *payment.Connect) *Handler {
	return &Handler{store: st, purchases: purchases, wallet: wallet, connect: connect}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  LoginResponse
// @Failure      400   {object}  httputil.ErrorResponse
// @Failure      401   {object}  httputil.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	claims := jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

// currentUser loads the authenticated user. It writes the error response
// itself and returns nil when the request cannot continue.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) *models.User {
	id, ok := appmw.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	u, err := h.store.FindUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	if err != nil {
		logger.Log.Error("failed to load user", zap.Uint("user_id", id), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load user")
		return nil
	}
	return u
}

// decode reads a JSON body; an empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := httputil.DecodeJSON(r, v); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
}

// writeCheckoutError maps purchase failures: validation 401 (404 when the
// item does not exist), gateway and consistency failures 422.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *payment.ValidationError
		cerr *payment.ConsistencyError
	)
	switch {
	case errors.As(err, &verr):
		code := http.StatusUnauthorized
		if verr.NotFound {
			code = http.StatusNotFound
		}
		httputil.WriteMessage(w, code, verr.Message)
	case errors.As(err, &cerr):
		httputil.WriteMessage(w, http.StatusUnprocessableEntity, cerr.Message)
	default:
		if gerr, ok := gateway.AsError(err); ok {
			httputil.WriteMessage(w, http.StatusUnprocessableEntity, gerr.Message)
			return
		}
		internalError(w, r, err)
	}
}

// writeConnectError maps connect account failures: gateway 422 {error},
// missing account 401 {message}.
func writeConnectError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *payment.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteMessage(w, http.StatusUnauthorized, verr.Message)
		return
	}
	if gerr, ok := gateway.AsError(err); ok {
		httputil.WriteError(w, http.StatusUnprocessableEntity, gerr.Message)
		return
	}
	internalError(w, r, err)
}

type consistencyResponse struct {
	Message   string        `json:"message"`
	Stage     payment.Stage `json:"stage"`
	Reference string        `json:"reference"`
}

// writeWalletError maps wallet failures: validation and gateway 401
// {message}, consistency 422 with the stage and gateway reference.
func writeWalletError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *payment.ValidationError
		cerr *payment.ConsistencyError
	)
	switch {
	case errors.As(err, &verr):
		httputil.WriteMessage(w, http.StatusUnauthorized, verr.Message)
	case errors.As(err, &cerr):
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, consistencyResponse{
			Message:   cerr.Message,
			Stage:     cerr.Stage,
			Reference: cerr.Reference,
		})
	default:
		if gerr, ok := gateway.AsError(err); ok {
			httputil.WriteMessage(w, http.StatusUnauthorized, gerr.Message)
			return
		}
		internalError(w, r, err)
	}
}
