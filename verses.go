// Package verses is a poem-publishing CMS built with Go and Echo.
// Visitors browse a public catalog, submit original work for review, and
// leave contact messages; an administrator curates content through a
// session-gated admin area. Poem covers are hosted on an external media
// service rather than on local disk.
package verses

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// App is the central verses application. It wires together the store,
// handlers, middleware, and page components.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Views  Views

	uploader     MediaUploader
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new verses App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     defaultViews(cfg.SiteName),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the database, middleware, and routes, then starts the
// HTTP server.
func (a *App) Start() error {
	if err := a.setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// setup performs all initialization short of listening. Split out of Start
// so tests can drive the app through Echo.ServeHTTP.
func (a *App) setup() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("verses: SessionSecret is required")
	}
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("verses: AdminPassword is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("verses: init store: %w", err)
	}
	a.Store = store

	if err := store.SeedUser(a.Config.AdminUsername, hashPassword(a.Config.AdminPassword)); err != nil {
		return fmt.Errorf("verses: seed admin user: %w", err)
	}

	if a.uploader == nil && a.Config.CloudinaryURL != "" {
		up, err := newCloudinaryUploader(a.Config.CloudinaryURL, a.Config.UploadFolder)
		if err != nil {
			return fmt.Errorf("verses: init uploader: %w", err)
		}
		a.uploader = up
	}

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)

	// Public JSON API
	e.GET("/poems", a.handleListPoems)
	e.GET("/poems/:slug", a.handleGetPoem)
	e.POST("/submissions", a.handleCreateSubmission)
	e.GET("/settings", a.handleGetSettings)
	e.POST("/messages", a.handleCreateMessage)
	e.POST("/auth/login", a.handleLogin)
	e.POST("/auth/logout", a.handleLogout)

	// Admin mutations outside the /admin prefix require a session and answer
	// 401 JSON when anonymous.
	e.POST("/poems", a.handleCreatePoem, a.requireAdmin)
	e.PUT("/poems/:slug", a.handleUpdatePoem, a.requireAdmin)
	e.DELETE("/poems/:slug", a.handleDeletePoem, a.requireAdmin)
	e.GET("/submissions", a.handleListSubmissions, a.requireAdmin)
	e.POST("/submissions/:id", a.handleApproveSubmission, a.requireAdmin)
	e.DELETE("/submissions/:id", a.handleRejectSubmission, a.requireAdmin)
	e.PUT("/settings", a.handleUpdateSettings, a.requireAdmin)
	e.POST("/upload", a.handleUpload, a.requireAdmin)

	// Admin-prefixed paths follow the page gate: anonymous requests are
	// redirected to /login.
	admin := e.Group("/admin", a.adminGate)
	admin.GET("/dashboard", a.handleDashboard)
	admin.GET("/messages", a.handleListMessages)
	admin.PATCH("/messages/:id", a.handleMarkMessageRead)
	admin.DELETE("/messages/:id", a.handleDeleteMessage)

	// Pages and feeds
	e.GET("/login", a.handleLoginPage)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
