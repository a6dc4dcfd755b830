package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/printly/printly-backend/api/controllers"
	"github.com/printly/printly-backend/api/middleware"
	"github.com/printly/printly-backend/internal/adminauth"
	"github.com/printly/printly-backend/internal/identity"
	"github.com/printly/printly-backend/internal/messaging"
	"github.com/printly/printly-backend/internal/orders"
	"github.com/printly/printly-backend/internal/uploads"
	"github.com/printly/printly-backend/internal/verification"
	"github.com/printly/printly-backend/pkg/config"
	"github.com/printly/printly-backend/pkg/db"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/printly/printly-backend/pkg/metrics"
	"github.com/printly/printly-backend/pkg/redis"
)

// NewRouter wires the full HTTP surface: the public customer API, the
// admin API behind the capability guard, and the infra endpoints.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	shopMetrics *metrics.ShopMetrics,
	identitySvc identity.Service,
	uploadSvc uploads.Service,
	ordersSvc orders.Service,
	verificationSvc verification.Service,
	adminAuthSvc adminauth.Service,
	waLinks *messaging.Builder,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	tokenPolicy := middleware.NewTokenRateLimitPolicy(
		cfg.RateLimit.TokenWindow,
		cfg.RateLimit.TokenIPLimit,
		cfg.RateLimit.TokenPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, healthRedis(redisClient)))
	})
	r.Method(http.MethodGet, "/metrics", shopMetrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		issueToken := controllers.IssueToken(identitySvc, logg)
		if redisClient != nil {
			r.With(middleware.TokenRateLimit(tokenPolicy, redisClient, logg)).Post("/tokens", issueToken)
		} else {
			r.Post("/tokens", issueToken)
		}

		r.Post("/uploads", controllers.UploadFiles(uploadSvc, cfg.Upload, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersSvc, waLinks, logg))
			r.Get("/", controllers.ListOrders(identitySvc, ordersSvc, logg))
			r.Get("/{orderId}", controllers.GetOrder(identitySvc, ordersSvc, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(identitySvc, ordersSvc, logg))
			r.Post("/{orderId}/files/remove", controllers.RemoveOrderFile(identitySvc, ordersSvc, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/auth/login", controllers.AdminLogin(adminAuthSvc, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminGuard(adminAuthSvc, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(ordersSvc, logg))
				r.Get("/{orderId}", controllers.AdminGetOrder(ordersSvc, logg))
				r.Patch("/{orderId}", controllers.AdminUpdateOrder(ordersSvc, logg))
			})

			r.Route("/verification", func(r chi.Router) {
				r.Get("/", controllers.AdminListUnverified(verificationSvc, waLinks, logg))
				r.Post("/bulk", controllers.AdminVerifyBulk(verificationSvc, logg))
				r.Post("/{identityId}", controllers.AdminVerifyIdentity(verificationSvc, logg))
			})
		})
	})

	return r
}

// healthRedis hides a typed-nil redis client from the readiness probe.
func healthRedis(client *redis.Client) redis.Pinger {
	if client == nil {
		return nil
	}
	return client
}
