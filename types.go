package verses

import "time"

// Poem is the core content type stored in SQLite and served as JSON.
// Excerpt is derived from Content, never set by clients.
type Poem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Content    string    `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	CoverImage *string   `json:"coverImage"`
	Category   *string   `json:"category"`
	Author     string    `json:"author"`
	IsFeatured bool      `json:"isFeatured"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Submission is a visitor-contributed poem awaiting review. It is consumed
// exactly once: approval turns it into an unpublished Poem, rejection deletes it.
type Submission struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CoverImage *string   `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ContactMessage is a visitor contact-form entry. Read flips false to true
// once and never back.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// SiteSettings is the singleton row of site-wide display settings,
// created lazily on first read.
type SiteSettings struct {
	ID           string  `json:"id"`
	SiteTitle    string  `json:"siteTitle"`
	SiteSubtitle *string `json:"siteSubtitle"`
	HeaderImage  *string `json:"headerImage"`
}

// User is the single admin account. Password holds a sha-256 hex digest.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// PoemUpdate is a partial update payload for PUT /poems/:slug.
// Nil fields are left untouched.
type PoemUpdate struct {
	Title      *string `json:"title"`
	Slug       *string `json:"slug"`
	Content    *string `json:"content"`
	CoverImage *string `json:"coverImage"`
	Category   *string `json:"category"`
	Author     *string `json:"author"`
	IsFeatured *bool   `json:"isFeatured"`
	Published  *bool   `json:"published"`
}

// SettingsUpdate is a partial update payload for PUT /settings.
type SettingsUpdate struct {
	SiteTitle    *string `json:"siteTitle"`
	SiteSubtitle *string `json:"siteSubtitle"`
	HeaderImage  *string `json:"headerImage"`
}

// PoemFilter selects poems for listing. A nil Published means no
// published/draft filter (admin "all" view).
type PoemFilter struct {
	Published *bool
	Featured  bool
	Limit     int
}

// DashboardStats feeds the admin dashboard page.
type DashboardStats struct {
	Poems              int
	Drafts             int
	PendingSubmissions int
	UnreadMessages     int
}
