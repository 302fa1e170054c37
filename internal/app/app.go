// Package app は設定の読み込みと依存関係のワイヤリングを行い、サブコマンドを実行する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/maisgestor/portal/internal/cache"
	"github.com/maisgestor/portal/internal/config"
	"github.com/maisgestor/portal/internal/database"
	"github.com/maisgestor/portal/internal/handler"
	"github.com/maisgestor/portal/internal/logger"
	"github.com/maisgestor/portal/internal/menu"
	"github.com/maisgestor/portal/internal/metrics"
	"github.com/maisgestor/portal/internal/middleware"
	"github.com/maisgestor/portal/internal/news"
	"github.com/maisgestor/portal/internal/repository"
	"github.com/maisgestor/portal/internal/security"
	"github.com/maisgestor/portal/internal/worker/importer"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("online", cfg.Online()),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// components はserve/workerで共有する依存関係。
type components struct {
	db        *sql.DB // オフライン動作時はnil
	store     *cache.BadgerStore
	registry  *prometheus.Registry
	metrics   *metrics.Collector
	menu      *menu.Manager
	news      *news.Manager
	scheduler *importer.Scheduler // 取り込み元フィード未設定時はnil
}

// buildComponents はDB接続、PersistentCache、マネージャーを初期化し、初回読み込みを行う。
// DATABASE_URLが空の場合、またはDBに到達できない場合もオフラインとして起動を継続する。
func buildComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components, error) {
	c := &components{}

	// 1. DB接続（任意）
	if cfg.Online() {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Ping(ctx, db, 5*time.Second); err != nil {
			log.Warn("database is unreachable, starting with persistent cache",
				slog.String("error", err.Error()),
			)
		} else {
			log.Info("database connection established")
		}
		c.db = db
	} else {
		log.Warn("DATABASE_URL is not set, running in offline mode")
	}

	// 2. PersistentCache
	store, err := cache.Open(cfg.CachePath, log)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	c.store = store

	// 3. メトリクス
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.metrics = metrics.NewCollector(c.registry)

	// 4. リポジトリ（オフライン時はnilのまま渡す）
	var (
		menuRepo  repository.MenuRepository
		newsStore repository.NewsStore
	)
	if c.db != nil {
		menuRepo = repository.NewPostgresMenuRepo(c.db)
		newsStore = repository.NewPostgresNewsStore(c.db)
	}

	// 5. セキュリティ
	limiter := security.NewAttemptLimiter(cfg.RateLimitWindow, cfg.RateLimitMaxAttempts)
	validator := security.NewNewsValidator(security.NewContentSanitizer())

	// 6. マネージャーの初期化と初回読み込み
	c.menu = menu.NewManager(menuRepo, store, c.metrics, log)
	c.news = news.NewManager(newsStore, store, limiter, validator, c.metrics, log)
	c.menu.Load(ctx)
	c.news.Init(ctx)

	// 7. ニュース取り込み（任意）
	if len(cfg.ImportFeedURLs) > 0 {
		fetcher := importer.NewFetcher(
			security.NewFeedURLGuard(), c.metrics, log,
			cfg.ImportTimeout, cfg.ImportMaxSize, cfg.ImportCategory,
		)
		c.scheduler = importer.NewScheduler(
			cfg.ImportFeedURLs, fetcher, c.news, log, cfg.ImportMaxConcurrent,
		)
	}

	return c, nil
}

// close は保持しているリソースを解放する。
func (c *components) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			slog.Error("failed to close cache", slog.String("error", err.Error()))
		}
	}
	if c.db != nil {
		c.db.Close()
	}
}

// newRouter はcomponentsからHTTPルーターを構築する。
func newRouter(cfg *config.Config, c *components, rl *middleware.RateLimiter, log *slog.Logger) http.Handler {
	deps := &handler.RouterDeps{
		Logger:            log,
		AdminToken:        cfg.AdminToken,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		MenuService:       c.menu,
		NewsService:       c.news,
		MetricsHandler:    metrics.Handler(c.registry),
	}
	// nilの*sql.DBをインターフェースに入れないようにする
	if c.db != nil {
		deps.HealthChecker = c.db
	}
	if c.scheduler != nil {
		deps.ImportRunner = c.scheduler
	}
	return handler.NewRouter(deps)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// 取り込み元フィードが設定されている場合はスケジューラも同じプロセスで実行する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.close()

	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN is not set, admin API is disabled")
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitAPI), c.metrics, log)
	defer rl.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newRouter(cfg, c, rl, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if c.scheduler != nil {
		go c.scheduler.Start(ctx, cfg.ImportInterval)
	}
	if cfg.NewsRefreshInterval > 0 && c.db != nil {
		go refreshNews(ctx, c.news, cfg.NewsRefreshInterval)
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	log.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// refreshNews はintervalごとにRemoteStoreから記事を再取得する。
// 別プロセスのworkerが取り込んだ記事をAPIに反映するために使用する。
func refreshNews(ctx context.Context, m *news.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.FetchNews(ctx)
		}
	}
}

// runWorker はワーカーモードで起動する。
// ニュース取り込みスケジューラを起動し、SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if len(cfg.ImportFeedURLs) == 0 {
		return errors.New("IMPORT_FEED_URLS is not set, nothing to import")
	}

	log := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		log.Info("shutting down worker...")
		cancel()
	}()

	log.Info("worker starting",
		slog.Duration("import_interval", cfg.ImportInterval),
		slog.Int("feed_count", len(cfg.ImportFeedURLs)),
		slog.Int("max_concurrent", cfg.ImportMaxConcurrent),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	c.scheduler.Start(ctx, cfg.ImportInterval)

	log.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.Online() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
