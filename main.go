package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"backend/internal/cart"
	"backend/internal/checkout"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/orderapi"
	"backend/internal/telemetry"
)

func main() {
	config.Load()

	logger, err := zap.NewProduction()
	if config.AppEnv.Environment == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureMedicineIndexes(db); err != nil {
		log.Printf("medicine index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureOrderHistoryIndexes(db); err != nil {
		log.Printf("order history index warning: %v", err)
	}
	if err := database.EnsureReviewIndexes(db); err != nil {
		log.Printf("review index warning: %v", err)
	}

	if config.AppEnv.OTLPEndpoint != "" {
		shutdownTracer, err := telemetry.InitTracerProvider(context.Background(), config.AppEnv.OTLPEndpoint)
		if err != nil {
			log.Fatal(err)
		}
		defer shutdownTracer(context.Background())
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider()
	if err != nil {
		log.Fatal(err)
	}
	defer shutdownMeter(context.Background())

	var cartCache cart.Cache
	if config.AppEnv.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: config.AppEnv.RedisAddr})
		cartCache = cart.NewRedisCache(redisClient)
		log.Println("Redis cart cache enabled:", config.AppEnv.RedisAddr)
	}

	notifier := cart.NewNotifier()
	cartStore := cart.NewStore(cart.NewMongoRepository(db), cartCache, notifier, logger.Named("cart"))

	orderClient := orderapi.NewClient(
		config.AppEnv.OrderAPIBaseURL,
		config.AppEnv.OrderAPIKey,
		config.AppEnv.OrderAPITimeout,
		logger.Named("orderapi"),
	)

	orchestrator := checkout.NewOrchestrator(
		cartStore,
		orderClient,
		checkout.NewMongoHistoryRepository(db),
		config.AppEnv.ShippingFee,
		config.AppEnv.OrderAPITimeout,
		logger.Named("checkout"),
	)

	secret := config.AppEnv.JWTSecret
	accessTTL := config.AppEnv.AccessTokenTTL
	refreshTTL := config.AppEnv.RefreshTokenTTL

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Static("/public", "./public")

	r.GET("/healthz", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(metricsHandler))

	r.POST("/auth/register", handlers.Register(db, secret, accessTTL, refreshTTL))
	r.POST("/auth/login", handlers.Login(db, secret, accessTTL, refreshTTL))
	r.POST("/auth/refresh", handlers.Refresh(db, secret, accessTTL, refreshTTL))
	r.POST("/auth/logout", handlers.Logout(db))
	r.GET("/auth/me", middleware.AuthGuard(secret), handlers.GetMe(db))

	r.GET("/medicines", handlers.GetMedicines(db))
	r.GET("/medicines/featured", handlers.GetFeaturedMedicines(db))
	r.GET("/medicines/:id", handlers.GetMedicine(db))
	r.GET("/medicines/:id/reviews", handlers.GetMedicineReviews(db))
	r.GET("/categories", handlers.GetCategories(db))

	customer := r.Group("/")
	customer.Use(middleware.CustomerAuth(secret))
	{
		customer.GET("/cart", handlers.GetCart(cartStore))
		customer.GET("/cart/events", handlers.CartEvents(cartStore))
		customer.POST("/cart/items", handlers.AddCartItem(db, cartStore, logger.Named("cart")))
		customer.PATCH("/cart/items/:medicineId", handlers.UpdateCartItem(cartStore, logger.Named("cart")))
		customer.DELETE("/cart/items/:medicineId", handlers.RemoveCartItem(cartStore, logger.Named("cart")))
		customer.DELETE("/cart", handlers.ClearCart(cartStore, logger.Named("cart")))

		customer.POST("/checkout", handlers.SubmitCheckout(db, orchestrator, logger.Named("checkout")))

		customer.GET("/orders", handlers.GetMyOrders(db))
		customer.GET("/orders/:orderId", handlers.GetMyOrder(db))

		customer.POST("/medicines/:id/reviews", handlers.CreateMedicineReview(db))
		customer.DELETE("/medicines/:id/reviews", handlers.DeleteMedicineReview(db))
	}

	user := r.Group("/user")
	user.Use(middleware.AuthGuard(secret))
	{
		user.GET("/addresses", handlers.GetUserAddresses(db))
		user.POST("/addresses", handlers.CreateUserAddress(db))
		user.PUT("/addresses/:id", handlers.UpdateUserAddress(db))
		user.DELETE("/addresses/:id", handlers.DeleteUserAddress(db))

		user.GET("/favorites", handlers.GetUserFavorites(db))
		user.POST("/favorites", handlers.AddUserFavorite(db))
		user.DELETE("/favorites/:medicineId", handlers.DeleteUserFavorite(db))
	}

	seller := r.Group("/seller/api")
	seller.Use(middleware.SellerAuth(secret))
	{
		seller.GET("/medicines", handlers.GetAllMedicines(db))
		seller.POST("/medicines", handlers.CreateMedicine(db))
		seller.PUT("/medicines/:id", handlers.UpdateMedicine(db))
		seller.DELETE("/medicines/:id", handlers.DeleteMedicine(db))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(secret))
	{
		admin.GET("/categories", handlers.GetAllCategories(db))
		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PATCH("/orders/:orderId", handlers.UpdateOrderStatus(db))
		admin.DELETE("/orders/:orderId", handlers.DeleteOrder(db))
	}

	srv := &http.Server{
		Addr:    ":" + config.AppEnv.Port,
		Handler: r,
	}

	go func() {
		log.Println("listening on", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown:", err)
	}
}
