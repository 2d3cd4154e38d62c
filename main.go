package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"product-customizer/core"
	"product-customizer/handlers/api/catalog"
	"product-customizer/handlers/api/customizations"
	"product-customizer/handlers/api/sessions"
	"product-customizer/handlers/auth"
	"product-customizer/handlers/websocket"
	"product-customizer/render"
	"product-customizer/session"
	"product-customizer/stores"
	"product-customizer/templates"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(store stores.Store, manager *session.Manager, templateCatalog *templates.Catalog) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/templates", catalog.HandleList(templateCatalog))
		r.Post("/sessions", sessions.HandleOpen(manager))
		r.Route("/session", sessions.Routes(manager))
		r.Get("/orders/{orderId}/customizations", customizations.HandleList(store))
	})

	r.Get("/previews/*", customizations.HandleGetPreview(store))

	return r
}

func loadCatalog() *templates.Catalog {
	path := os.Getenv("TEMPLATES_FILE")
	if path == "" {
		return templates.Default()
	}
	c, err := templates.LoadFile(path)
	if err != nil {
		logrus.Fatalf("Failed to load template catalog: %v", err)
	}
	logrus.WithField("path", path).Info("Loaded template catalog")
	return c
}

func envMinutes(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logrus.WithField(key, v).Warn("Invalid duration, using default")
		return def
	}
	return time.Duration(n) * time.Minute
}

func waitForShutdown(ioo *socketio.Server, cancel context.CancelFunc) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	cancel()
	ioo.Close(nil)
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	store := stores.GetStore()
	templateCatalog := loadCatalog()

	fonts, err := render.NewFonts()
	if err != nil {
		logrus.Fatalf("Failed to load fonts: %v", err)
	}

	demoMode := os.Getenv("DEMO_MODE") != "false"
	if demoMode {
		if err := store.SaveOrder(context.Background(), core.DemoOrder()); err != nil {
			logrus.Fatalf("Failed to seed demo order: %v", err)
		}
		logrus.WithField("order_id", core.DemoOrderID).Info("Demo mode enabled")
	}

	maxIdle := envMinutes("SESSION_MAX_IDLE_MINUTES", 60*time.Minute)
	manager := session.NewManager(session.Config{
		Orders:         store,
		Previews:       store,
		Customizations: store,
		Catalog:        templateCatalog,
		Renderer:       render.NewRenderer(fonts),
		CheckoutURL:    os.Getenv("CHECKOUT_REDIRECT_URL"),
		DemoMode:       demoMode,
		MaxIdle:        maxIdle,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go manager.RunCleanup(ctx, time.Minute)

	r := setupRouter(store, manager, templateCatalog)

	ioo := websocket.SetupSocketIO(manager)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithFields(logrus.Fields{
		"addr":     *listenAddress,
		"maxIdle":  maxIdle,
		"demoMode": demoMode,
	}).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo, cancel)
}
