package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/config"
	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/fixture"
	"github.com/barebonescms/internal/logging"
	"github.com/barebonescms/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Global 在各子命令间共享已加载的配置与 logger。
type Global struct {
	Config config.AppConfig
	Logger zerolog.Logger
}

type CLI struct {
	Serve      ServeCmd      `cmd:"" default:"1" help:"Run the CMS HTTP server"`
	CreateUser CreateUserCmd `cmd:"" help:"Create a dashboard user"`
	Import     ImportCmd     `cmd:"" help:"Import templates, regions, pages and blocks from a YAML file"`
}

type ServeCmd struct {
	Addr string `help:"Listen address, overrides LISTEN_ADDR"`
}

type CreateUserCmd struct {
	Username string `arg:"" help:"Login name"`
	Password string `arg:"" help:"Password"`
}

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"Site fixture in YAML"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("barebonescms"),
		kong.Description("A barebones page-tree CMS"),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath, block.Default().Models()...); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}

	err := ctx.Run(&Global{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error().Err(err).Str("command", ctx.Command()).Msg("command failed")
		os.Exit(1)
	}
}

func (s *ServeCmd) Run(g *Global) error {
	cfg := g.Config
	logger := g.Logger

	if created, err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		return fmt.Errorf("ensure super root user: %w", err)
	} else if created {
		logger.Info().Str("username", cfg.SuperRootUserName).Msg("created super root user")
	}

	gin.SetMode(cfg.GinMode)
	r := router.SetupRouter(db.DB, router.Options{
		SessionSecret: cfg.SessionSecret,
		TemplateDir:   cfg.TemplateDir,
		UploadDir:     cfg.UploadDir,
		UploadURL:     cfg.UploadURLPath,
		Logger:        logger,
	})

	addr := cfg.ListenAddr
	if s.Addr != "" {
		addr = s.Addr
	}
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("templates", cfg.TemplateDir).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *CreateUserCmd) Run(g *Global) error {
	created, err := db.EnsureUser(db.DB, c.Username, c.Password)
	if err != nil {
		return err
	}
	if !created {
		g.Logger.Warn().Str("username", c.Username).Msg("user already exists or credentials are empty")
		return nil
	}
	g.Logger.Info().Str("username", c.Username).Msg("user created")
	return nil
}

func (c *ImportCmd) Run(g *Global) error {
	site, err := fixture.LoadFile(c.File)
	if err != nil {
		return err
	}

	summary, err := fixture.Import(db.DB, block.Default(), site)
	if err != nil {
		return fmt.Errorf("import %s: %w", c.File, err)
	}
	g.Logger.Info().
		Int("templates", summary.Templates).
		Int("regions", summary.Regions).
		Int("pages", summary.Pages).
		Int("blocks", summary.Blocks).
		Msg("site imported")
	return nil
}
