package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	checkoutcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/checkout"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type signingSecretProvider interface {
	SigningSecret() string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	stripeClient signingSecretProvider,
	stripeWebhookService stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, cfg.Webhook.MaxBodyBytes, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.AllowedOrigins()))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalBuyer(cfg.JWT, logg))
			r.Post("/checkout", checkoutcontrollers.Initiate(checkoutService, cartService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBuyer(cfg.JWT, logg))

			r.Post("/checkout/success", checkoutcontrollers.Success(cartService, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(cartService, logg))
				r.Delete("/", cartcontrollers.CartClear(cartService, logg))
				r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
				r.Patch("/items/{productRef}", cartcontrollers.CartSetQuantity(cartService, logg))
				r.Delete("/items/{productRef}", cartcontrollers.CartRemoveItem(cartService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(ordersService, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront-api",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/metrics" && req.URL.Path != "/health/live"
		}),
	)
}
