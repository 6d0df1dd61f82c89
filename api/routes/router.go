package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/photovault/photovault-backend/api/controllers"
	billingcontrollers "github.com/photovault/photovault-backend/api/controllers/billing"
	"github.com/photovault/photovault-backend/api/middleware"
	"github.com/photovault/photovault-backend/internal/ledger"
	"github.com/photovault/photovault-backend/internal/plans"
	"github.com/photovault/photovault-backend/internal/revenue"
	"github.com/photovault/photovault-backend/pkg/config"
	"github.com/photovault/photovault-backend/pkg/db"
	"github.com/photovault/photovault-backend/pkg/logger"
	"github.com/photovault/photovault-backend/pkg/pubsub"
	"github.com/photovault/photovault-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pubsubClient *pubsub.Client,
	planService plans.Service,
	lifecycleService billingcontrollers.LifecycleService,
	ledgerService ledger.Service,
	revenueService revenue.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP controllers.Pinger
	if redisClient != nil {
		redisP = redisClient
	}
	var pubsubP controllers.Pinger
	if pubsubClient != nil {
		pubsubP = pubsubClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, pubsubP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", billingcontrollers.PlansList(planService, logg))
			r.Get("/{planId}", billingcontrollers.PlanDetail(planService, logg))
		})

		r.Post("/accounts", billingcontrollers.AccountCreate(lifecycleService, logg))

		r.Route("/galleries/{galleryId}", func(r chi.Router) {
			r.Get("/account", billingcontrollers.AccountDetail(lifecycleService, logg))
			r.Post("/payments/upfront", billingcontrollers.UpfrontPaymentCreate(lifecycleService, logg))
			r.Post("/payments/recurring", billingcontrollers.RecurringPaymentCreate(lifecycleService, logg))
			r.Post("/session-events", billingcontrollers.SessionEventApply(lifecycleService, logg))
			r.Post("/advance-clock", billingcontrollers.ClockAdvance(lifecycleService, logg))
			r.Get("/ledger", billingcontrollers.LedgerList(ledgerService, logg))
		})

		r.Route("/recipients/{recipientId}/revenue", func(r chi.Router) {
			r.Get("/", billingcontrollers.RevenueBreakdown(revenueService, logg))
			r.Get("/projection", billingcontrollers.RevenueProjection(revenueService, logg))
		})
	})

	return r
}
