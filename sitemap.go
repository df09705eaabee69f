package verses

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// handleSitemap serves a sitemap of the home page and all published poems.
func (a *App) handleSitemap(c echo.Context) error {
	published := true
	poems, err := a.Store.ListPoems(PoemFilter{Published: &published})
	if err != nil {
		return err
	}

	base := a.Config.SiteURL
	urls := []sitemapURL{
		{Loc: base},
	}
	for _, p := range poems {
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, "poems", p.Slug),
			LastMod: p.UpdatedAt.Format(time.RFC3339),
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
