package verses

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

type createPoemRequest struct {
	Title      string  `json:"title"`
	Slug       string  `json:"slug"`
	Content    string  `json:"content"`
	CoverImage *string `json:"coverImage"`
	Category   *string `json:"category"`
	Author     string  `json:"author"`
	IsFeatured bool    `json:"isFeatured"`
	Published  *bool   `json:"published"`
}

func (a *App) handleCreatePoem(c echo.Context) error {
	var req createPoemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" || req.Slug == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Title, slug, and content are required")
	}
	published := true
	if req.Published != nil {
		published = *req.Published
	}
	poem, err := a.Store.CreatePoem(Poem{
		Title:      req.Title,
		Slug:       req.Slug,
		Content:    req.Content,
		CoverImage: req.CoverImage,
		Category:   req.Category,
		Author:     req.Author,
		IsFeatured: req.IsFeatured,
		Published:  published,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "Slug is already in use")
		}
		return err
	}
	return c.JSON(http.StatusCreated, poem)
}

func (a *App) handleUpdatePoem(c echo.Context) error {
	var upd PoemUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	poem, err := a.Store.UpdatePoem(c.Param("slug"), upd)
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Poem not found")
		}
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "Slug is already in use")
		}
		return err
	}
	return c.JSON(http.StatusOK, poem)
}

func (a *App) handleDeletePoem(c echo.Context) error {
	if err := a.Store.DeletePoem(c.Param("slug")); err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Poem not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleListSubmissions(c echo.Context) error {
	subs, err := a.Store.ListSubmissions()
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []Submission{}
	}
	return c.JSON(http.StatusOK, subs)
}

func (a *App) handleApproveSubmission(c echo.Context) error {
	poem, err := a.Store.ApproveSubmission(c.Param("id"))
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Submission not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "poemId": poem.ID})
}

func (a *App) handleRejectSubmission(c echo.Context) error {
	if err := a.Store.DeleteSubmission(c.Param("id")); err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Submission not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleUpdateSettings(c echo.Context) error {
	var upd SettingsUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	settings, err := a.Store.UpdateSettings(a.Config.SiteName, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (a *App) handleListMessages(c echo.Context) error {
	msgs, err := a.Store.ListMessages()
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []ContactMessage{}
	}
	return c.JSON(http.StatusOK, msgs)
}

// handleMarkMessageRead marks a message as read. The flag is monotonic, so
// the request body is irrelevant: there is no path back to unread.
func (a *App) handleMarkMessageRead(c echo.Context) error {
	msg, err := a.Store.MarkMessageRead(c.Param("id"))
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Message not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, msg)
}

func (a *App) handleDeleteMessage(c echo.Context) error {
	if err := a.Store.DeleteMessage(c.Param("id")); err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Message not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Username and password are required")
	}

	user, err := a.Store.GetUserByUsername(req.Username)
	if err != nil {
		if err == ErrNotFound {
			a.loginLimiter.Record(c.RealIP())
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		return err
	}
	supplied := hashPassword(req.Password)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(user.Password)) != 1 {
		a.loginLimiter.Record(c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "username": user.Username})
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// hashPassword applies the unsalted sha-256 hex digest used by the seeded
// admin credentials. Changing the scheme invalidates existing user rows.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// --- Pages ---

func (a *App) handleLoginPage(c echo.Context) error {
	if IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/dashboard")
	}
	return Render(c, a.Views.Login())
}

func (a *App) handleDashboard(c echo.Context) error {
	stats, err := a.Store.Stats()
	if err != nil {
		return err
	}
	return Render(c, a.Views.Dashboard(stats))
}
