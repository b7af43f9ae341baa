package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/faults"
	"github.com/mmdatafocus/costbook_backend/middlewares"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/mmdatafocus/costbook_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// RateLimiter is a fixed-window counter per client IP. A nil client means
// the shared Redis connection, once there is one.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// api carries the services every handler needs.
type api struct {
	faults *faults.Handler
	reader recipeReader
	store  utils.ObjectStore
	logger *logrus.Logger

	// verifyPush checks the OIDC token on /pubsub deliveries. Nil skips
	// the check outside production.
	verifyPush pushVerifier
}

func newAPI(logger *logrus.Logger) *api {
	a := &api{
		faults: faults.NewHandler(logger, faults.PolicyFromEnv()),
		reader: modelReader{},
		logger: logger,

		verifyPush: newPushVerifier(),
	}
	if utils.GCSConfigured() {
		a.store = utils.GCSStore{}
	}
	return a
}

var errStorageNotConfigured = faults.New(faults.KindUnknown, "Cloud storage is not configured")

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func correlationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// readinessGate answers 503 until the database is connected. Redis is
// optional: without it caching and locks are skipped.
func readinessGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	}
}

func isProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

func corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allow-list; elsewhere every origin is allowed.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if isProduction() {
		if allowedOrigins == "" {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowCredentials = true
	}
	return cors.New(corsConfig)
}

func setupRouter(a *api) *gin.Engine {
	r := gin.New()
	r.Use(correlationIdMiddleware())
	r.Use(readinessGate())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Use(corsMiddleware())

	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		limit := int64(config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
		window := time.Duration(config.IntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
		r.Use(NewRateLimiter(nil, limit, window).RateLimitMiddleware)
	}

	r.Use(customErrorLogger(a.logger))
	r.Use(gin.Recovery())

	// Push deliveries carry Google's OIDC token, not ours.
	r.POST("/pubsub", a.recipeEventPushHandler())

	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.LoaderMiddleware())

	pub := r.Group("/api")
	pub.GET("/categories", a.listCategories)
	pub.POST("/recipes/preview", a.previewRecipe)
	pub.POST("/auth/register", a.register)
	pub.POST("/auth/login", a.login)

	user := r.Group("/api", middlewares.RequireUser())
	user.POST("/auth/logout", a.logout)
	user.GET("/me", a.getMe)
	user.PUT("/me", a.updateMe)
	user.PUT("/me/password", a.changePassword)

	user.GET("/recipes", a.listRecipes)
	user.GET("/recipes/recent", a.recentRecipes)
	user.POST("/recipes", a.createRecipe)
	user.GET("/recipes/:id", a.getRecipe)
	user.PUT("/recipes/:id", a.updateRecipe)
	user.PATCH("/recipes/:id", a.updateRecipe)
	user.DELETE("/recipes/:id", a.deleteRecipe)
	user.POST("/recipes/:id/favorite", a.recipeAction("toggleFavorite", models.ToggleFavoriteRecipe, http.StatusOK))
	user.POST("/recipes/:id/active", a.recipeAction("toggleActive", models.ToggleActiveRecipe, http.StatusOK))
	user.POST("/recipes/:id/duplicate", a.recipeAction("duplicateRecipe", models.DuplicateRecipe, http.StatusCreated))
	user.GET("/recipes/:id/history", a.recipeHistory)
	user.GET("/recipes/:id/events", a.recipeEventStatus)
	user.POST("/recipes/:id/events/reprocess", a.reprocessRecipeEvents)
	user.POST("/recipes/:id/image", a.uploadRecipeImage)

	user.GET("/drafts", a.listDrafts)
	user.POST("/drafts", a.saveDraft)
	user.PUT("/drafts/:id", a.updateDraft)
	user.DELETE("/drafts/:id", a.deleteDraft)
	user.POST("/drafts/:id/promote", a.recipeAction("promoteDraft", models.PromoteDraft, http.StatusCreated))

	user.GET("/dashboard", a.dashboard)
	user.GET("/backup", a.exportBackup)
	user.POST("/backup/import", a.importBackup)
	user.POST("/backup/cloud", a.cloudBackup)
	user.GET("/export/excel", a.exportExcel)

	admin := r.Group("/api/admin", middlewares.RequireAdmin())
	admin.GET("/stats", a.adminStats)
	admin.GET("/users", a.adminUsers)
	admin.PUT("/users/:id/active", a.adminSetUserActive)
	admin.GET("/recipes", a.adminRecipes)
	admin.POST("/recompute", a.adminRecompute)
	admin.POST("/outbox/replay", a.adminOutboxReplay)

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// The port opens before dependencies connect; the readiness gate
	// answers 503 meanwhile.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: setupRouter(newAPI(logger)),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	go config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !config.SkipMigrations() {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if config.PubSubConfigured() {
		go workflow.NewOutboxDispatcher(db, logger).Run(workerCtx)
		if err := RunRecipeEventSubscriber(workerCtx, logger); err != nil {
			config.LogError(logger, "server.go", "main", "start subscriber", nil, err)
		}
	}
	if workflow.ShouldRunDirectOutboxProcessor() {
		go workflow.NewOutboxDirectProcessor(db, logger).Run(workerCtx)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on port ", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers before draining requests.
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	client := rl.client
	if client == nil {
		client = config.GetRedisDB()
	}
	if client == nil {
		c.Next()
		return
	}
	key := "RateLimit:" + c.ClientIP()

	count, err := client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		// fail open
		c.Next()
		return
	}
	if count == 1 {
		client.Expire(c.Request.Context(), key, rl.window)
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// paramId reads a positive integer path parameter.
func paramId(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", utils.ErrInvalidInput, name)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

// queryBool reads an optional boolean query parameter; nil when absent.
func queryBool(c *gin.Context, name string) *bool {
	v, ok := c.GetQuery(name)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// bindJSON wraps binding failures as validation faults.
func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return faults.Wrap(faults.KindValidation, "Invalid request body", err)
	}
	return nil
}
