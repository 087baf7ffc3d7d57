package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	internalhttp "github.com/pzerone/webvirt-wizard/internal/api/http"
	"github.com/pzerone/webvirt-wizard/internal/auth"
	"github.com/pzerone/webvirt-wizard/internal/console"
	"github.com/pzerone/webvirt-wizard/internal/session"
	"github.com/pzerone/webvirt-wizard/internal/submission"
)

var AppVersion string

const usage = `Usage: webvirt-wizard [command] [flags]

Commands:
  serve    start the operator console (default)
  login    log in to the remote API and store the session
  logout   forget the stored session
  status   report whether a session is stored
  upload   submit a CSV batch from the terminal
`

type components struct {
	store      session.Store
	auth       *auth.Client
	dispatcher *submission.Dispatcher
}

func newComponents() (*components, error) {
	if err := config.Api.validate(); err != nil {
		return nil, err
	}

	var store session.Store
	if config.Session.Ephemeral {
		store = session.NewMemoryStore()
	} else {
		store = session.NewFileStore(config.Session.File)
	}

	httpClient := &http.Client{Timeout: config.Api.Timeout}
	return &components{
		store:      store,
		auth:       auth.NewClient(config.Api.BaseURL, httpClient, store),
		dispatcher: submission.NewDispatcher(config.Api.BaseURL, httpClient, store),
	}, nil
}

func main() {
	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "serve":
		InitConfig(os.Stdout)
		err = runServe()
	case "login":
		InitConfig(os.Stderr)
		err = runLogin(args)
	case "logout":
		InitConfig(os.Stderr)
		err = runLogout()
	case "status":
		InitConfig(os.Stderr)
		err = runStatus()
	case "upload":
		InitConfig(os.Stderr)
		err = runUpload(args)
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe() error {
	slog.Info("WebVirt Wizard", "version", AppVersion)

	comps, err := newComponents()
	if err != nil {
		return err
	}

	services := &internalhttp.Services{
		Console: console.New(comps.store, comps.auth, comps.dispatcher),
	}

	addr := fmt.Sprintf("%s:%d", config.Http.Host, config.Http.Port)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://" + addr},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	server := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting operator console", "address", "http://"+addr, "api", config.Api.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}
