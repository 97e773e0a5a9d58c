package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mcsrc/internal/classfile"
	"mcsrc/internal/decompiler"
	"mcsrc/internal/gateway/config"
	"mcsrc/internal/gateway/handler/rpc"
	"mcsrc/internal/gateway/server"
	"mcsrc/internal/javadoc"
	"mcsrc/internal/minecraft"
	"mcsrc/internal/session"
	"mcsrc/internal/settings"
	"mcsrc/internal/state"
)

type App struct {
	server  *server.Server
	session *session.Session
	stores  *Stores
	cancel  context.CancelFunc
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	sess, stores, err := NewSession(cfg, state.Default())
	if err != nil {
		return nil, err
	}

	// Routing & Server
	mux := server.NewMux(rpc.NewViewerHandler(sess), rpc.NewStateHandler(sess))
	srv := server.New(cfg.Port, mux)

	return &App{
		server:  srv,
		session: sess,
		stores:  stores,
	}, nil
}

// NewSession wires a viewer session from cfg. The caller closes the
// session and then the returned stores.
func NewSession(cfg *config.Config, initial state.State) (*session.Session, *Stores, error) {
	stores, err := initJarStores(cfg)
	if err != nil {
		return nil, nil, err
	}

	prefs, err := settings.Open(cfg.SettingsFile)
	if err != nil {
		_ = stores.close()
		return nil, nil, fmt.Errorf("failed to open settings: %w", err)
	}

	var engine decompiler.Engine
	if cmd := strings.TrimSpace(cfg.DecompilerCmd); cmd != "" {
		p, err := classfile.NewProcessDecompiler(cmd)
		if err != nil {
			_ = stores.close()
			return nil, nil, err
		}
		log.Printf("decompile: using external command %q", cmd)
		engine = p
	}

	var docs *javadoc.Client
	if u := strings.TrimSpace(cfg.JavadocURL); u != "" {
		docs = javadoc.NewClient(u, nil)
	}

	sess, err := session.New(session.Config{
		Engine:       engine,
		IndexWorkers: cfg.IndexWorkers,
		Minecraft: minecraft.NewClient(minecraft.ClientConfig{
			ManifestURL: cfg.ManifestURL,
			Cache:       stores.jars,
		}),
		Settings: settings.New(prefs),
		Javadoc:  docs,
		Initial:  initial,
	})
	if err != nil {
		_ = stores.close()
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, stores, nil
}

// Close releases the stores behind a session built by NewSession.
func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	m := s.jars.Metrics()
	log.Printf("jar store: blob hits=%d misses=%d origin reads=%d", m.BlobHits, m.BlobMisses, m.OriginReads)
	return s.close()
}

func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.session.Start(ctx)
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if a.cancel != nil {
		a.cancel()
	}
	a.session.Close()
	if cerr := a.stores.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
