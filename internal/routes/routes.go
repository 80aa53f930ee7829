package routes

import (
	"net/http"

	_ "github.com/GiorgiUbiria/textng_payments/docs"
	"github.com/GiorgiUbiria/textng_payments/internal/handlers"
	"github.com/GiorgiUbiria/textng_payments/internal/idempotency"
	appmw "github.com/GiorgiUbiria/textng_payments/internal/middleware"
	"github.com/GiorgiUbiria/textng_payments/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRoutes builds the API router. idem may be nil, which disables
// Idempotency-Key replay.
func NewRoutes(h *handlers.Handler, idem *idempotency.Store) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotency.Header},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Works Fine!"))
	})

	r.Post("/auth/login", h.Login)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appmw.Authenticated)

		r.Route("/stripe_connect", func(r chi.Router) {
			r.Post("/connect", h.Connect)
			r.Get("/balance_check", h.BalanceCheck)
			r.Get("/login_link", h.LoginLink)
			r.Get("/retrieve", h.Retrieve)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(idempotency.Middleware(idem))
			r.Post("/create_charge_for_theme", h.ChargeTheme)
			r.Post("/create_charge_for_burn_number", h.ChargeBurnNumber)
			r.Post("/apple_pay_theme", h.IntentTheme(payment.PlatformApple))
			r.Post("/apple_pay_burn_number", h.IntentBurnNumber(payment.PlatformApple))
			r.Post("/google_pay_theme", h.IntentTheme(payment.PlatformGoogle))
			r.Post("/google_pay_burn_number", h.IntentBurnNumber(payment.PlatformGoogle))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.With(idempotency.Middleware(idem)).Post("/topup", h.TopUp)
			r.With(idempotency.Middleware(idem)).Post("/transfer", h.Transfer)
			r.With(idempotency.Middleware(idem)).Post("/withdraw", h.Withdraw)
			r.Get("/transaction_history", h.TransactionHistory)
		})
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
