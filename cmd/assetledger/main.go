package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/riobizsols/assetledger/internal/api"
	"github.com/riobizsols/assetledger/internal/auth"
	"github.com/riobizsols/assetledger/internal/config"
	"github.com/riobizsols/assetledger/internal/db"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/service"
	"github.com/riobizsols/assetledger/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	min    slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string, level slog.Level) (func(), error) {
	opts := &slog.HandlerOptions{Level: level}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		min:    level,
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load(config.DefaultEnvFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("assetledger", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fs.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: assetledger [flags]

Flags:
  -d, -db <path>          SQLite database path (env DB_PATH, default: assetledger.sqlite3)
  -a, -addr <host:port>   listen address (env ADDR, default: :8080)
  -u, -user <name>        admin username on first run (env ADMIN_USER, default: Admin)
  -l, -log <path>         log file path (env LOG_PATH, default: stdout/stderr only)
  -h, -help               show this help and exit

Other settings are read from the environment and from .env / .env.local.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath, cfg.SlogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	password, err := bootstrap(context.Background(), database, cfg.AdminOrg, cfg.AdminUser)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	if password != "" {
		printInitResult(cfg.DBPath, cfg.AdminOrg, cfg.AdminUser, password)
		fmt.Println()
	}

	slog.Info("database ready", "path", cfg.DBPath)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}

	events := service.NewDispatcher(service.SlogEventLogger{Logger: slog.Default().With("component", "events")})

	groupStore := store.NewGroupStore(database, nil)
	groupStore.HeaderWidth = cfg.GroupIDWidth
	groupStore.MemberWidth = cfg.MemberIDWidth

	deps := api.Deps{
		DB:          database,
		Signer:      auth.NewSigner(jwtSecret, cfg.TokenTTL),
		Assignments: service.NewAssignments(database, events),
		Groups:      service.NewGroups(groupStore, events),
	}
	if cfg.MetricsEnabled {
		deps.MetricsPath = cfg.MetricsPath
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "metrics", deps.MetricsPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	events.Wait()
	slog.Info("server stopped, closing database")
}

// bootstrap creates the admin organization and account when the database
// has no users yet. It returns the generated password, or "" if nothing was
// created.
func bootstrap(ctx context.Context, database *sql.DB, orgID, adminUsername string) (string, error) {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	org, err := store.GetOrganization(ctx, database, orgID)
	if err != nil {
		return "", err
	}
	if org == nil {
		if _, err := store.CreateOrganization(ctx, database, orgID, orgID); err != nil {
			return "", fmt.Errorf("creating organization: %w", err)
		}
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, adminUsername, string(hash), model.RoleAdmin, orgID); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}

	return password, nil
}

// printInitResult prints the first-run result to stdout.
func printInitResult(dbPath, orgID, username, password string) {
	fmt.Printf("Database initialized: %s\n", dbPath)
	fmt.Printf("Organization: %s\n", orgID)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
