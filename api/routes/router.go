package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftlane/craftlane-backend/api/controllers"
	"github.com/craftlane/craftlane-backend/api/middleware"
	"github.com/craftlane/craftlane-backend/internal/bookings"
	"github.com/craftlane/craftlane-backend/internal/boosts"
	"github.com/craftlane/craftlane-backend/internal/cart"
	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/internal/checkout"
	"github.com/craftlane/craftlane-backend/internal/conversations"
	"github.com/craftlane/craftlane-backend/internal/designs"
	"github.com/craftlane/craftlane-backend/internal/ledger"
	"github.com/craftlane/craftlane-backend/internal/notifications"
	"github.com/craftlane/craftlane-backend/internal/orders"
	"github.com/craftlane/craftlane-backend/internal/quotes"
	"github.com/craftlane/craftlane-backend/internal/returns"
	"github.com/craftlane/craftlane-backend/internal/shipments"
	"github.com/craftlane/craftlane-backend/internal/users"
	"github.com/craftlane/craftlane-backend/internal/webhooks"
	"github.com/craftlane/craftlane-backend/pkg/config"
	"github.com/craftlane/craftlane-backend/pkg/db"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/craftlane/craftlane-backend/pkg/metrics"
	"github.com/craftlane/craftlane-backend/pkg/redis"
)

// Services bundles everything the HTTP surface exposes.
type Services struct {
	Users         users.Service
	Catalog       catalog.Service
	Conversations conversations.Service
	Quotes        quotes.Service
	Designs       designs.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Bookings      bookings.Service
	Ledger        ledger.Service
	Shipments     shipments.Service
	Returns       returns.Service
	Boosts        boosts.Service
	Notifications notifications.Service
	Webhooks      webhooks.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	promRegistry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhook",
		cfg.RateLimit.WebhookWindow,
		cfg.RateLimit.WebhookIPLimit,
		0,
	)
	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		0,
		cfg.RateLimit.CheckoutUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, redisClient, logg)).
			Post("/payments", controllers.PaymentGatewayWebhook(svcs.Webhooks, cfg.Square.WebhookSecret, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UsersMe(svcs.Users, logg))
			r.Put("/", controllers.UsersUpdateMe(svcs.Users, logg))
			r.Route("/bank-accounts", func(r chi.Router) {
				r.Get("/", controllers.UsersListBankAccounts(svcs.Users, logg))
				r.Post("/", controllers.UsersAddBankAccount(svcs.Users, logg))
				r.Delete("/{bankAccountId}", controllers.UsersRemoveBankAccount(svcs.Users, logg))
			})
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogListProducts(svcs.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogGetProduct(svcs.Catalog, logg))
			r.Get("/services", controllers.CatalogListServices(svcs.Catalog, logg))
			r.Get("/services/{serviceId}", controllers.CatalogGetService(svcs.Catalog, logg))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", controllers.ConversationsStart(svcs.Conversations, logg))
			r.Get("/", controllers.ConversationsList(svcs.Conversations, logg))
			r.Get("/{conversationId}", controllers.ConversationsGet(svcs.Conversations, logg))
			r.Get("/{conversationId}/quotes", controllers.QuotesListByConversation(svcs.Quotes, logg))
			r.Get("/{conversationId}/designs", controllers.DesignsListByConversation(svcs.Designs, logg))
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Post("/request", controllers.QuotesRequest(svcs.Quotes, logg))
			r.Post("/send", controllers.QuotesSend(svcs.Quotes, logg))
			r.Get("/{quoteId}", controllers.QuotesGet(svcs.Quotes, logg))
			r.Post("/{quoteId}/accept", controllers.QuotesAccept(svcs.Quotes, logg))
			r.Post("/{quoteId}/reject", controllers.QuotesReject(svcs.Quotes, logg))
		})

		r.Route("/designs", func(r chi.Router) {
			r.Post("/", controllers.DesignsSubmit(svcs.Designs, logg))
			r.Get("/{designId}", controllers.DesignsGet(svcs.Designs, logg))
			r.Post("/{designId}/approve", controllers.DesignsApprove(svcs.Designs, logg))
			r.Post("/{designId}/reject", controllers.DesignsReject(svcs.Designs, logg))
			r.Post("/{designId}/request-changes", controllers.DesignsRequestChanges(svcs.Designs, logg))
			r.Post("/{designId}/resubmit", controllers.DesignsResubmit(svcs.Designs, logg))
			r.Post("/{designId}/copy", controllers.DesignsCopy(svcs.Designs, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(svcs.Cart, logg))
		})

		r.With(middleware.RateLimit(checkoutPolicy, redisClient, logg)).
			Post("/checkout", controllers.CheckoutCreate(svcs.Checkout, logg))
		r.Get("/checkout/sessions/{sessionId}", controllers.CheckoutGetSession(svcs.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersListMine(svcs.Orders, logg))
			r.Get("/sales", controllers.OrdersListSales(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrdersGet(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrdersCancel(svcs.Orders, logg))
			r.Post("/{orderId}/ready-to-ship", controllers.OrdersMarkReadyToShip(svcs.Shipments, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", controllers.BookingsListMine(svcs.Bookings, logg))
			r.Get("/sales", controllers.BookingsListSales(svcs.Bookings, logg))
			r.Get("/{bookingId}", controllers.BookingsGet(svcs.Bookings, logg))
			r.Post("/{bookingId}/start", controllers.BookingsStart(svcs.Bookings, logg))
			r.Post("/{bookingId}/complete", controllers.BookingsComplete(svcs.Bookings, logg))
			r.Post("/{bookingId}/cancel", controllers.BookingsCancel(svcs.Bookings, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionsList(svcs.Ledger, logg))
			r.Get("/{transactionId}", controllers.TransactionsGet(svcs.Ledger, logg))
			r.Post("/{transactionId}/slip", controllers.TransactionsAttachSlip(svcs.Ledger, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", controllers.ReturnsSubmit(svcs.Returns, logg))
			r.Get("/", controllers.ReturnsList(svcs.Returns, logg))
			r.Get("/{returnId}", controllers.ReturnsGet(svcs.Returns, logg))
			r.Post("/{returnId}/respond", controllers.ReturnsSellerRespond(svcs.Returns, logg))
			r.Post("/{returnId}/cancel", controllers.ReturnsCancel(svcs.Returns, logg))
		})

		r.Route("/boosts", func(r chi.Router) {
			r.Post("/", controllers.BoostsPurchase(svcs.Boosts, logg))
			r.Get("/", controllers.BoostsListMine(svcs.Boosts, logg))
			r.Get("/{boostId}", controllers.BoostsGet(svcs.Boosts, logg))
			r.Post("/{boostId}/cancel", controllers.BoostsCancel(svcs.Boosts, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsList(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationsMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationsMarkAllRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/{transactionId}/confirm", controllers.AdminTransactionsConfirm(svcs.Ledger, logg))
			r.Post("/{transactionId}/release", controllers.AdminTransactionsRelease(svcs.Ledger, logg))
		})
		r.Post("/checkout-sessions/{sessionId}/release-all", controllers.AdminSessionsReleaseAll(svcs.Ledger, logg))

		r.Route("/shipments", func(r chi.Router) {
			r.Post("/", controllers.AdminShipmentsConsolidate(svcs.Shipments, logg))
			r.Get("/", controllers.AdminShipmentsList(svcs.Shipments, logg))
			r.Get("/{shipmentId}", controllers.AdminShipmentsGet(svcs.Shipments, logg))
			r.Post("/{shipmentId}/retry-booking", controllers.AdminShipmentsRetryBooking(svcs.Shipments, logg))
		})
		r.Post("/orders/{orderId}/delivered", controllers.AdminOrdersMarkDelivered(svcs.Shipments, logg))

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.AdminReturnsList(svcs.Returns, logg))
			r.Post("/{returnId}/resolve", controllers.AdminReturnsResolve(svcs.Returns, logg))
			r.Post("/{returnId}/refund", controllers.AdminReturnsRefund(svcs.Returns, logg))
		})
	})

	return r
}
