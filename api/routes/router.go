package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendora-shop/trendora-backend/api/controllers"
	"github.com/trendora-shop/trendora-backend/api/middleware"
	authsvc "github.com/trendora-shop/trendora-backend/internal/auth"
	cartsvc "github.com/trendora-shop/trendora-backend/internal/cart"
	checkoutsvc "github.com/trendora-shop/trendora-backend/internal/checkout"
	ordersvc "github.com/trendora-shop/trendora-backend/internal/orders"
	productsvc "github.com/trendora-shop/trendora-backend/internal/products"
	usersvc "github.com/trendora-shop/trendora-backend/internal/users"
	"github.com/trendora-shop/trendora-backend/pkg/config"
	"github.com/trendora-shop/trendora-backend/pkg/db"
	"github.com/trendora-shop/trendora-backend/pkg/enums"
	"github.com/trendora-shop/trendora-backend/pkg/logger"
	"github.com/trendora-shop/trendora-backend/pkg/metrics"
	"github.com/trendora-shop/trendora-backend/pkg/razorpay"
	pkgredis "github.com/trendora-shop/trendora-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	razorpayClient *razorpay.Client,
	authService authsvc.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	ordersService ordersvc.Service,
	productService productsvc.Service,
	usersService usersvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	// Typed nils would defeat the nil checks inside the handlers.
	var cache pkgredis.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	if redisClient != nil {
		cache = redisClient
		idempotencyStore = redisClient
	}
	idempotency := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/users", func(r chi.Router) {
		r.With(idempotency).Post("/register", controllers.UserRegister(authService, logg))
		r.Post("/login", controllers.UserLogin(authService, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Get("/profile", controllers.UserProfile(authService, logg))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(productService, logg))
		r.Get("/best-sellers", controllers.ProductsBestSellers(productService, logg))
		r.Get("/new-arrivals", controllers.ProductsNewArrivals(productService, logg))
		r.Get("/similar/{productId}", controllers.ProductsSimilar(productService, logg))
		r.Get("/{productId}", controllers.ProductsGet(productService, logg))
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/", controllers.CartGet(cartService, logg))
		r.Post("/", controllers.CartAddLine(cartService, logg))
		r.Put("/", controllers.CartSetLineQuantity(cartService, logg))
		r.Delete("/", controllers.CartRemoveLine(cartService, logg))
		r.With(middleware.Auth(cfg.JWT, logg), idempotency).Post("/merge", controllers.CartMerge(cartService, logg))
	})

	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(idempotency)
		r.Post("/", controllers.CheckoutCreate(checkoutService, logg))
		r.Post("/razorpay/order", controllers.CheckoutRazorpayOrder(razorpayClient, logg))
		r.Get("/{checkoutId}", controllers.CheckoutGet(checkoutService, logg))
		r.Put("/{checkoutId}/pay", controllers.CheckoutPay(checkoutService, logg))
		r.Post("/{checkoutId}/finalize", controllers.CheckoutFinalize(checkoutService, logg))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/my-orders", controllers.OrdersListMine(ordersService, logg))
		r.Get("/{orderId}", controllers.OrdersGetMine(ordersService, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(ordersService, logg))
			r.Put("/{orderId}", controllers.AdminOrderUpdateStatus(ordersService, logg))
			r.Delete("/{orderId}", controllers.AdminOrderDelete(ordersService, logg))
		})
		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductCreate(productService, logg))
			r.Put("/{productId}", controllers.AdminProductUpdate(productService, logg))
			r.Delete("/{productId}", controllers.AdminProductDelete(productService, logg))
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminUsersList(usersService, logg))
			r.Post("/add", controllers.AdminUserCreate(usersService, logg))
			r.Put("/{userId}", controllers.AdminUserUpdate(usersService, logg))
			r.Delete("/{userId}", controllers.AdminUserDelete(usersService, logg))
		})
	})

	return r
}
