package main

import (
	"log"

	"github.com/caarlos0/env/v11"

	"github.com/zurayna/verses"
)

type envConfig struct {
	Addr          string `env:"ADDR" envDefault:":3000"`
	SiteName      string `env:"SITE_NAME" envDefault:"Verses"`
	SiteURL       string `env:"SITE_URL" envDefault:"http://localhost:3000"`
	DatabasePath  string `env:"DATABASE_PATH" envDefault:"data/verses.db"`
	SessionSecret string `env:"SESSION_SECRET,required"`
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD,required"`
	CookieSecure  bool   `env:"COOKIE_SECURE"`
	CloudinaryURL string `env:"CLOUDINARY_URL"`
	UploadFolder  string `env:"UPLOAD_FOLDER" envDefault:"verses-uploads"`
}

func main() {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(err)
	}

	app := verses.New(verses.Config{
		SiteName:      cfg.SiteName,
		SiteURL:       cfg.SiteURL,
		Addr:          cfg.Addr,
		DatabasePath:  cfg.DatabasePath,
		SessionSecret: cfg.SessionSecret,
		CookieSecure:  cfg.CookieSecure,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		CloudinaryURL: cfg.CloudinaryURL,
		UploadFolder:  cfg.UploadFolder,
	})
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
