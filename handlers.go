package verses

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleListPoems(c echo.Context) error {
	var f PoemFilter
	if c.QueryParam("all") != "true" {
		// Default to the public view; published=false selects drafts.
		published := c.QueryParam("published") != "false"
		f.Published = &published
	}
	if c.QueryParam("featured") == "true" {
		f.Featured = true
	}
	if c.QueryParam("latest") == "true" {
		f.Limit = 4
	}
	poems, err := a.Store.ListPoems(f)
	if err != nil {
		return err
	}
	if poems == nil {
		poems = []Poem{}
	}
	return c.JSON(http.StatusOK, poems)
}

func (a *App) handleGetPoem(c echo.Context) error {
	poem, err := a.Store.GetPoem(c.Param("slug"))
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Poem not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, poem)
}

type submissionRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CoverImage *string `json:"coverImage"`
}

func (a *App) handleCreateSubmission(c echo.Context) error {
	var req submissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" || req.Title == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name, title, and content are required")
	}
	sub, err := a.Store.CreateSubmission(Submission{
		Name:       req.Name,
		Email:      req.Email,
		Title:      req.Title,
		Content:    req.Content,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sub)
}

type messageRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (a *App) handleCreateMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name, email, and message are required")
	}
	msg, err := a.Store.CreateMessage(ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

func (a *App) handleGetSettings(c echo.Context) error {
	settings, err := a.Store.GetSettings(a.Config.SiteName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}
