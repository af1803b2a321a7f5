package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitcheck/internal/api/apiconnect"
	"github.com/mmynk/splitcheck/internal/auth"
	"github.com/mmynk/splitcheck/internal/config"
	"github.com/mmynk/splitcheck/internal/middleware"
	"github.com/mmynk/splitcheck/internal/ocr"
	"github.com/mmynk/splitcheck/internal/realtime"
	"github.com/mmynk/splitcheck/internal/receipts"
	"github.com/mmynk/splitcheck/internal/service"
	"github.com/mmynk/splitcheck/internal/storage/sqlite"
	"github.com/mmynk/splitcheck/pkg/logging"
)

// receiptsPath is where locally stored receipt photos are served.
const receiptsPath = "/receipts/"

const shutdownTimeout = 10 * time.Second

// maxScanBytes bounds a ScanReceipt body: a base64 image plus JSON framing.
const maxScanBytes = service.MaxImageBytes*4/3 + 1<<20

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)
	if cfg.UsingDevSecret() {
		logger.Warn("Using the development JWT secret, set JWT_SECRET in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	hub := realtime.NewHub(logger)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	extractor, closeLimiter, err := newExtractor(ctx, cfg.OCR, logger)
	if err != nil {
		logger.Error("Failed to initialize receipt scanning", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	images, err := newImageStore(cfg.Receipts)
	if err != nil {
		logger.Error("Failed to initialize receipt storage", "error", err)
		os.Exit(1)
	}

	sessions := service.NewSessionService(store, tokens, hub, logger)
	sessions.SetFinalizeGrace(cfg.FinalizeGrace)
	defer sessions.Flush()

	interceptors := connect.WithInterceptors(
		middleware.RecoverInterceptor(logger),
		middleware.LoggingInterceptor(logger),
		middleware.RequireAuth(tokens, service.PublicProcedures...),
	)

	mux := http.NewServeMux()

	// Register Connect services
	sessionPath, sessionHandler := apiconnect.NewSessionServiceHandler(sessions, interceptors)
	mux.Handle(sessionPath, sessionHandler)

	itemPath, itemHandler := apiconnect.NewItemServiceHandler(service.NewItemService(store, hub, logger), interceptors)
	mux.Handle(itemPath, itemHandler)

	receiptPath, receiptHandler := apiconnect.NewReceiptServiceHandler(
		service.NewReceiptService(store, extractor, images, hub, logger),
		interceptors,
		connect.WithReadMaxBytes(maxScanBytes),
	)
	mux.Handle(receiptPath, receiptHandler)

	// Realtime change feed
	mux.Handle("GET /ws/{sessionID}", realtime.HandleWebSocket(hub, func(ctx context.Context, sessionID string) error {
		_, err := store.GetSession(ctx, sessionID)
		return err
	}, logger))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	if local, ok := images.(*receipts.LocalStore); ok {
		mux.Handle("GET "+receiptsPath, http.StripPrefix(receiptsPath, http.FileServer(http.Dir(local.Dir()))))
	}

	// Serve static files from frontend/static
	staticDir, err := filepath.Abs(cfg.StaticPath)
	if err != nil {
		logger.Error("Failed to resolve static path", "error", err)
		os.Exit(1)
	}
	logger.Info("Serving static files", "path", staticDir)

	// Handle all non-API routes with static file server
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/splitcheck.v1.") {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))

		// Session pages (/s/{code}, /s/{code}/join) are client-routed.
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	})

	// Add logging and CORS middleware
	handler := middleware.Logging(logger, middleware.CORS(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Error("Failed to listen", "address", server.Addr, "error", err)
		os.Exit(1)
	}

	logger.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
	if err := serve(ctx, server, ln, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// serve runs server on ln until ctx is done, then shuts it down. It returns
// only after in-flight requests have finished or the shutdown timed out.
func serve(ctx context.Context, server *http.Server, ln net.Listener, logger *slog.Logger) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}

// newExtractor builds the receipt extractor with its rate limiter. The
// returned func releases the limiter's resources.
func newExtractor(ctx context.Context, cfg config.OCRConfig, logger *slog.Logger) (*ocr.Extractor, func(), error) {
	var model ocr.Model = ocr.NotConfigured
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, receipt scanning is disabled")
	} else {
		gemini, err := ocr.NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		model = gemini
	}

	opts := []ocr.Option{
		ocr.WithMaxRetries(cfg.MaxRetries),
		ocr.WithTimeout(cfg.Timeout),
		ocr.WithLogger(logger),
	}

	closer := func() {}
	switch cfg.RateBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, ocr.WithLimiter(ocr.NewRedisLimiter(client, "splitcheck:ocr", cfg.RateLimit, cfg.RateWindow)))
		closer = func() { client.Close() }
		logger.Info("OCR rate limiter", "backend", "redis", "addr", cfg.RedisAddr)
	default:
		opts = append(opts, ocr.WithLimiter(ocr.NewSlidingWindow(cfg.RateLimit, cfg.RateWindow)))
		logger.Info("OCR rate limiter", "backend", "memory")
	}

	return ocr.NewExtractor(model, opts...), closer, nil
}

func newImageStore(cfg config.ReceiptsConfig) (receipts.Store, error) {
	switch cfg.Backend {
	case "s3":
		return receipts.NewS3Store(receipts.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		}), nil
	case "local":
		return receipts.NewLocalStore(cfg.Dir, strings.TrimSuffix(receiptsPath, "/"))
	default:
		return nil, nil
	}
}
