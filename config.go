package verses

// Config holds all configuration for a verses site.
type Config struct {
	SiteName string // Site name, also the lazily-created settings title (default "Verses")
	SiteURL  string // Canonical URL for feeds and the sitemap (default "http://localhost:3000")

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/verses.db")

	SessionSecret string // Required: session cookie signing secret
	CookieSecure  bool   // Set true behind HTTPS

	AdminUsername string // Admin account seeded at startup (default "admin")
	AdminPassword string // Required: password for the seeded admin account

	CloudinaryURL string // cloudinary:// credentials URL; uploads are disabled when empty
	UploadFolder  string // Remote folder for uploaded covers (default "verses-uploads")
}

func (c *Config) setDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Verses"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/verses.db"
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.UploadFolder == "" {
		c.UploadFolder = "verses-uploads"
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithViews overrides the built-in page components.
func WithViews(v Views) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithUploader replaces the Cloudinary-backed media uploader, mainly for tests.
func WithUploader(u MediaUploader) Option {
	return func(a *App) {
		a.uploader = u
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory served under /public (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
