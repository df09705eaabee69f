package verses

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Author      string `xml:"author,omitempty"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// handleFeed serves an RSS 2.0 feed of published poems, described by their
// derived excerpts.
func (a *App) handleFeed(c echo.Context) error {
	published := true
	poems, err := a.Store.ListPoems(PoemFilter{Published: &published})
	if err != nil {
		return err
	}

	settings, err := a.Store.GetSettings(a.Config.SiteName)
	if err != nil {
		return err
	}

	base := a.Config.SiteURL
	items := make([]rssItem, 0, len(poems))
	for _, p := range poems {
		poemURL := BuildURL(base, "poems", p.Slug)
		description := ""
		if p.Excerpt != nil {
			description = *p.Excerpt
		}
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        poemURL,
			Description: description,
			Author:      p.Author,
			PubDate:     p.CreatedAt.Format(time.RFC1123Z),
			GUID:        poemURL,
		})
	}

	subtitle := ""
	if settings.SiteSubtitle != nil {
		subtitle = *settings.SiteSubtitle
	}
	feed := rss{
		Version: "2.0",
		Channel: rssChannel{
			Title:       settings.SiteTitle,
			Link:        base,
			Description: subtitle,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
