package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/tui-rogue/internal/bridge"
	"github.com/vovakirdan/tui-rogue/internal/config"
	"github.com/vovakirdan/tui-rogue/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":2222").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.rogue/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Game is the per-session configuration every connection starts from.
	Game config.Config
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":2222",
		IdleTimeout: 30 * time.Minute,
		Game:        config.Default(),
	}
}

// SSHServer wraps a Wish SSH server hosting one dungeon session per
// connection. Sessions are fully isolated: each gets its own arena,
// queue, and simulation goroutine; only the record store is shared.
type SSHServer struct {
	config   SSHServerConfig
	server   *ssh.Server
	store    *storage.Store
	logger   *log.Logger
	sessions *SessionRegistry
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "rogue-ssh",
	})

	store, err := storage.Open(config.ExpandHome(cfg.Game.Paths.Database))
	if err != nil {
		logger.Warn("could not open record database", "error", err)
		// Continue without storage
	}

	srv := &SSHServer{
		config:   cfg,
		store:    store,
		logger:   logger,
		sessions: NewSessionRegistry(),
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".rogue", "host_key")
	}

	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler builds a fresh bridge and model for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	_, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	facade, err := s.buildFacade(sshSession.User())
	if err != nil {
		s.logger.Error("cannot build session bridge", "user", sshSession.User(), "error", err)
		return nil, nil
	}

	opts := Options{
		TickRate:    30,
		SnapshotDir: s.sessionSnapshotDir(sshSession.User()),
		MapW:        s.config.Game.Engine.Width,
		MapH:        s.config.Game.Engine.Height,
	}
	return NewModel(facade, opts), []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// buildFacade assembles an isolated per-connection bridge. The shared
// store serves as both session recorder and snapshot index; nil is fine,
// the facade treats both as optional.
func (s *SSHServer) buildFacade(user string) (*bridge.Facade, error) {
	game := s.config.Game
	bcfg := bridge.Config{
		QueueCapacity: game.Bridge.RenderQueueCapacity,
		ArenaSize:     game.Bridge.ArenaSize,
		ScriptDir:     config.ExpandHome(game.Paths.Scripts),
		SnapshotDir:   s.sessionSnapshotDir(user),
	}
	bcfg.Engine.Width = game.Engine.Width
	bcfg.Engine.Height = game.Engine.Height
	bcfg.Engine.Monsters = game.Engine.Monsters
	bcfg.Engine.Seed = game.Engine.Seed
	bcfg.Engine.InputBuffer = game.Bridge.InputBuffer

	deps := bridge.Deps{Logger: s.logger.WithPrefix("session:" + user)}
	if s.store != nil {
		deps.Recorder = s.store
		deps.Index = s.store
	}

	facade, err := bridge.New(bcfg, deps)
	if err != nil {
		return nil, err
	}
	if err := facade.Init(); err != nil {
		return nil, err
	}
	return facade, nil
}

// sessionSnapshotDir keeps each user's saves apart.
func (s *SSHServer) sessionSnapshotDir(user string) string {
	return filepath.Join(config.ExpandHome(s.config.Game.Paths.Snapshots), user)
}

// loggingMiddleware tracks and logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		id := s.sessions.Register(sshSession.User(), sshSession.RemoteAddr().String())
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
			"active", s.sessions.Count(),
		)
		next(sshSession)
		s.sessions.Unregister(id)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
			"active", s.sessions.Count(),
		)
	}
}

// Sessions returns the live session registry.
func (s *SSHServer) Sessions() *SessionRegistry {
	return s.sessions
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-done
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.store != nil {
		s.store.Close()
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
