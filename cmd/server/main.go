package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Skufu/symptomguide/internal/dataset"
	"github.com/Skufu/symptomguide/internal/lookup"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

const (
	sourceCSV      = "csv"
	sourcePostgres = "postgres"
)

type Config struct {
	Port          string
	DatasetSource string
	DatasetPath   string
	DatasetTable  string
	DatabaseURL   string
	StaticRoot    string
	AllowOrigins  []string
	MaxBodyBytes  int64
}

// app is built once at startup and shared read-only by every request.
type app struct {
	dataset    *dataset.Dataset
	engine     *lookup.Engine
	db         HealthChecker
	staticRoot string
	origins    []string
	maxBody    int64
}

type predictRequest struct {
	Symptoms []string `json:"symptoms"`
}

type predictResponse struct {
	Syndromes  []string                 `json:"syndromes"`
	Treatments []lookup.TreatmentOption `json:"treatments"`
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	var pool *pgxpool.Pool
	if cfg.DatasetSource == sourcePostgres {
		pool, err = connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer pool.Close()
	}

	ds, err := loadDataset(ctx, cfg, pool)
	if err != nil {
		log.Fatalf("dataset load failed: %v", err)
	}
	log.Printf("loaded %d rows (%d symptoms) from %s", ds.Len(), len(ds.Symptoms()), cfg.DatasetSource)

	a := &app{
		dataset:    ds,
		engine:     lookup.NewEngine(ds),
		staticRoot: cfg.StaticRoot,
		origins:    cfg.AllowOrigins,
		maxBody:    cfg.MaxBodyBytes,
	}
	if pool != nil {
		a.db = pool
	}
	if a.staticRoot == "" {
		a.staticRoot = detectStaticRoot()
	}

	router := setupRouter(a)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Printf("server listening on :%s", cfg.Port)
	waitForShutdown(server)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DatasetSource: strings.ToLower(getEnv("DATASET_SOURCE", sourceCSV)),
		DatasetPath:   os.Getenv("DATASET_PATH"),
		DatasetTable:  getEnv("DATASET_TABLE", "symptom_guide"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StaticRoot:    os.Getenv("STATIC_ROOT"),
		AllowOrigins:  splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
	}

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || maxBody <= 0 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be a positive integer")
	}
	cfg.MaxBodyBytes = maxBody

	switch cfg.DatasetSource {
	case sourceCSV:
		if cfg.DatasetPath == "" {
			return nil, fmt.Errorf("DATASET_PATH is required when DATASET_SOURCE=csv")
		}
	case sourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DATASET_SOURCE=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown DATASET_SOURCE %q", cfg.DatasetSource)
	}

	return cfg, nil
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func loadDataset(ctx context.Context, cfg *Config, q dataset.Querier) (*dataset.Dataset, error) {
	if cfg.DatasetSource == sourcePostgres {
		queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return dataset.LoadPostgres(queryCtx, q, cfg.DatasetTable)
	}
	return dataset.LoadCSV(cfg.DatasetPath)
}

func setupRouter(a *app) *gin.Engine {
	maxBody := a.maxBody
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	origins := a.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(maxBody),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}),
	)

	if a.staticRoot != "" && fileExists(filepath.Join(a.staticRoot, "index.html")) {
		router.Static("/static", a.staticRoot)
		router.StaticFile("/", filepath.Join(a.staticRoot, "index.html"))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if a.db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "rows": a.dataset.Len(), "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"rows":   a.dataset.Len(),
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "rows": a.dataset.Len(), "db": "ok"})
	})

	router.GET("/api/symptoms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"symptoms": a.dataset.Symptoms()})
	})

	router.POST("/predict", func(c *gin.Context) {
		var req predictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			// Unreadable bodies are answered like a request with no symptoms.
			if gin.IsDebugging() {
				log.Printf("predict: ignoring malformed body: %v", err)
			}
			req = predictRequest{}
		}

		res := a.engine.Lookup(req.Symptoms)
		c.JSON(http.StatusOK, predictResponse{
			Syndromes:  res.Disorders,
			Treatments: res.Treatments,
		})
	})

	return router
}

func waitForShutdown(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "."
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		if fileExists(filepath.Join(dir, "index.html")) {
			return dir
		}
	}

	return startDir
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
