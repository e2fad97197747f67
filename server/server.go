package server

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	session "github.com/projectflow/go-session"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Config holds the reference backend's settings.
type Config struct {
	// SigningKey signs the HS256 bearer tokens.
	SigningKey string

	// TokenTTL is the credential validity horizon. Zero means the
	// 7-day default.
	TokenTTL time.Duration

	// DeterministicIDs derives account ids from the normalized email
	// instead of random uuids. Handy for seeding and tests.
	DeterministicIDs bool

	Logger session.Logger
}

// Server wires the accounts repository, the token service, and the REST
// routes into one Fiber app.
type Server struct {
	app      *fiber.App
	accounts Accounts
	tokens   *TokenService
	config   Config
	logger   session.Logger
}

// New assembles the server on top of an existing bun handle.
func New(db *bun.DB, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = session.DefaultLogger()
	}

	s := &Server{
		app:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		accounts: NewAccountsRepository(db),
		tokens:   NewTokenService([]byte(cfg.SigningKey), cfg.TokenTTL),
		config:   cfg,
		logger:   logger,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)

	auth := api.Group("/auth")
	auth.Post("/signup", s.handleSignup)
	auth.Post("/login", s.handleLogin)
	auth.Get("/me", s.handleMe)
	auth.Get("/users", s.handleListUsers)
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Tokens exposes the token service, mainly for tests that need to mint
// expired credentials.
func (s *Server) Tokens() *TokenService {
	return s.tokens
}

// Listen starts serving on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) newAccountID(email string) uuid.UUID {
	if s.config.DeterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			return id
		}
	}
	return uuid.New()
}

// OpenDatabase opens (and migrates, if needed) the sqlite database at
// dsn. Use ":memory:" for throwaway instances.
func OpenDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
