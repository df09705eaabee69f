package verses

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = sql.ErrNoRows

// maxFeatured is the cap on concurrently featured poems. Promoting a third
// poem demotes the one with the oldest update timestamp.
const maxFeatured = 2

// slugAttempts bounds slug-collision retries during submission approval.
const slugAttempts = 3

// Store wraps a SQLite database and provides CRUD operations for poems,
// submissions, contact messages, site settings, and the admin user.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access; busy_timeout so writers wait
	// instead of failing with SQLITE_BUSY; synchronous=NORMAL is safe with WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS poems (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL,
    excerpt TEXT,
    cover_image TEXT,
    category TEXT,
    author TEXT NOT NULL DEFAULT 'Admin',
    is_featured INTEGER NOT NULL DEFAULT 0,
    published INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    cover_image TEXT,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    message TEXT NOT NULL,
    read INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
    id TEXT PRIMARY KEY,
    site_title TEXT NOT NULL,
    site_subtitle TEXT,
    header_image TEXT
);
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_poems_featured ON poems (is_featured, updated_at);
`)
	return err
}

// --- Poems ---

const poemColumns = `id, title, slug, content, excerpt, cover_image, category, author, is_featured, published, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoem(r rowScanner) (Poem, error) {
	var p Poem
	var excerpt, cover, category sql.NullString
	var featured, published int
	var created, updated int64
	err := r.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &excerpt, &cover, &category,
		&p.Author, &featured, &published, &created, &updated)
	if err != nil {
		return Poem{}, err
	}
	p.Excerpt = nullableString(excerpt)
	p.CoverImage = nullableString(cover)
	p.Category = nullableString(category)
	p.IsFeatured = featured == 1
	p.Published = published == 1
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return p, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// ListPoems returns poems ordered by creation time descending, filtered
// per f. Published=nil lists drafts and published alike.
func (s *Store) ListPoems(f PoemFilter) ([]Poem, error) {
	query := `SELECT ` + poemColumns + ` FROM poems`
	var conds []string
	var args []any
	if f.Published != nil {
		published := 0
		if *f.Published {
			published = 1
		}
		conds = append(conds, "published = ?")
		args = append(args, published)
	}
	if f.Featured {
		conds = append(conds, "is_featured = 1")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poems []Poem
	for rows.Next() {
		p, err := scanPoem(rows)
		if err != nil {
			return nil, err
		}
		poems = append(poems, p)
	}
	return poems, rows.Err()
}

// GetPoem returns a poem by slug regardless of published status.
func (s *Store) GetPoem(slug string) (Poem, error) {
	row := s.db.QueryRow(`SELECT `+poemColumns+` FROM poems WHERE slug = ?`, slug)
	return scanPoem(row)
}

// CreatePoem inserts a new poem. The excerpt is derived from the content,
// ID and timestamps are assigned here, and if the poem arrives featured the
// slot rule is enforced within the same transaction.
func (s *Store) CreatePoem(p Poem) (Poem, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	excerpt := Excerpt(p.Content)
	p.Excerpt = &excerpt
	if p.Author == "" {
		p.Author = "Admin"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Poem{}, err
	}
	defer tx.Rollback()

	if p.IsFeatured {
		if err := demoteOldestFeatured(tx, p.ID); err != nil {
			return Poem{}, err
		}
	}
	if err := insertPoem(tx, p); err != nil {
		return Poem{}, err
	}
	if err := tx.Commit(); err != nil {
		return Poem{}, err
	}
	return p, nil
}

func insertPoem(tx *sql.Tx, p Poem) error {
	featured, published := 0, 0
	if p.IsFeatured {
		featured = 1
	}
	if p.Published {
		published = 1
	}
	_, err := tx.Exec(`INSERT INTO poems (`+poemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.Content, toNullString(p.Excerpt), toNullString(p.CoverImage),
		toNullString(p.Category), p.Author, featured, published,
		p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano())
	return err
}

// demoteOldestFeatured clears the featured flag on the oldest-updated poems
// so that at most maxFeatured-1 remain featured besides excludeID. Ties on
// the update timestamp break on row order.
func demoteOldestFeatured(tx *sql.Tx, excludeID string) error {
	rows, err := tx.Query(`SELECT id FROM poems WHERE is_featured = 1 AND id <> ? ORDER BY updated_at ASC`, excludeID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var featured []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		featured = append(featured, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for len(featured) >= maxFeatured {
		if _, err := tx.Exec(`UPDATE poems SET is_featured = 0 WHERE id = ?`, featured[0]); err != nil {
			return err
		}
		featured = featured[1:]
	}
	return nil
}

// UpdatePoem applies a partial update to the poem with the given slug.
// The excerpt is re-derived when content is part of the payload, and
// promoting the poem to featured demotes the oldest-updated featured poem
// when the slot cap would otherwise be exceeded. All writes share one
// transaction so a failed demotion aborts the promotion.
func (s *Store) UpdatePoem(slug string, upd PoemUpdate) (Poem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Poem{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+poemColumns+` FROM poems WHERE slug = ?`, slug)
	p, err := scanPoem(row)
	if err != nil {
		return Poem{}, err
	}

	if upd.IsFeatured != nil && *upd.IsFeatured {
		if err := demoteOldestFeatured(tx, p.ID); err != nil {
			return Poem{}, err
		}
	}

	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Slug != nil {
		p.Slug = *upd.Slug
	}
	if upd.Content != nil {
		p.Content = *upd.Content
		excerpt := Excerpt(p.Content)
		p.Excerpt = &excerpt
	}
	if upd.CoverImage != nil {
		p.CoverImage = upd.CoverImage
	}
	if upd.Category != nil {
		p.Category = upd.Category
	}
	if upd.Author != nil {
		p.Author = *upd.Author
	}
	if upd.IsFeatured != nil {
		p.IsFeatured = *upd.IsFeatured
	}
	if upd.Published != nil {
		p.Published = *upd.Published
	}
	p.UpdatedAt = time.Now().UTC()

	featured, published := 0, 0
	if p.IsFeatured {
		featured = 1
	}
	if p.Published {
		published = 1
	}
	_, err = tx.Exec(`UPDATE poems SET title = ?, slug = ?, content = ?, excerpt = ?, cover_image = ?, category = ?, author = ?, is_featured = ?, published = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.Content, toNullString(p.Excerpt), toNullString(p.CoverImage),
		toNullString(p.Category), p.Author, featured, published, p.UpdatedAt.UnixNano(), p.ID)
	if err != nil {
		return Poem{}, err
	}
	if err := tx.Commit(); err != nil {
		return Poem{}, err
	}
	return p, nil
}

// DeletePoem removes a poem by slug. Returns ErrNotFound if no row matched.
func (s *Store) DeletePoem(slug string) error {
	res, err := s.db.Exec(`DELETE FROM poems WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Submissions ---

// CreateSubmission stores a visitor-contributed poem for review.
func (s *Store) CreateSubmission(sub Submission) (Submission, error) {
	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(`INSERT INTO submissions (id, name, email, title, content, cover_image, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Email, sub.Title, sub.Content, toNullString(sub.CoverImage), sub.CreatedAt.UnixNano())
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ListSubmissions returns all pending submissions, newest first.
func (s *Store) ListSubmissions() ([]Submission, error) {
	rows, err := s.db.Query(`SELECT id, name, email, title, content, cover_image, created_at FROM submissions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubmission(r rowScanner) (Submission, error) {
	var sub Submission
	var cover sql.NullString
	var created int64
	if err := r.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Title, &sub.Content, &cover, &created); err != nil {
		return Submission{}, err
	}
	sub.CoverImage = nullableString(cover)
	sub.CreatedAt = time.Unix(0, created).UTC()
	return sub, nil
}

// GetSubmission returns a single submission by ID.
func (s *Store) GetSubmission(id string) (Submission, error) {
	row := s.db.QueryRow(`SELECT id, name, email, title, content, cover_image, created_at FROM submissions WHERE id = ?`, id)
	return scanSubmission(row)
}

// DeleteSubmission rejects a submission. Returns ErrNotFound if absent.
func (s *Store) DeleteSubmission(id string) error {
	res, err := s.db.Exec(`DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveSubmission promotes a submission into an unpublished poem draft and
// deletes the submission, both inside one transaction so a failure on either
// side leaves the submission pending. The poem's author comes from the
// submitter's name and its slug carries a timestamp suffix; a slug collision
// is retried with a randomized suffix a bounded number of times.
func (s *Store) ApproveSubmission(id string) (Poem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Poem{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT id, name, email, title, content, cover_image, created_at FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		return Poem{}, err
	}

	now := time.Now().UTC()
	excerpt := Excerpt(sub.Content)
	p := Poem{
		ID:         uuid.NewString(),
		Title:      sub.Title,
		Slug:       SubmissionSlug(sub.Title, now),
		Content:    sub.Content,
		Excerpt:    &excerpt,
		CoverImage: sub.CoverImage,
		Author:     sub.Name,
		Published:  false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for attempt := 0; ; attempt++ {
		err = insertPoem(tx, p)
		if err == nil {
			break
		}
		if !isUniqueViolation(err) || attempt >= slugAttempts {
			return Poem{}, err
		}
		p.Slug = SubmissionSlug(sub.Title, now) + "-" + uuid.NewString()[:4]
	}

	if _, err := tx.Exec(`DELETE FROM submissions WHERE id = ?`, id); err != nil {
		return Poem{}, err
	}
	if err := tx.Commit(); err != nil {
		return Poem{}, err
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// --- Contact messages ---

// CreateMessage stores a visitor contact message.
func (s *Store) CreateMessage(m ContactMessage) (ContactMessage, error) {
	m.ID = uuid.NewString()
	m.Read = false
	m.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(`INSERT INTO messages (id, name, email, message, read, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		m.ID, m.Name, m.Email, m.Message, m.CreatedAt.UnixNano())
	if err != nil {
		return ContactMessage{}, err
	}
	return m, nil
}

// ListMessages returns all contact messages, newest first.
func (s *Store) ListMessages() ([]ContactMessage, error) {
	rows, err := s.db.Query(`SELECT id, name, email, message, read, created_at FROM messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ContactMessage
	for rows.Next() {
		var m ContactMessage
		var read int
		var created int64
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &read, &created); err != nil {
			return nil, err
		}
		m.Read = read == 1
		m.CreatedAt = time.Unix(0, created).UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkMessageRead flips a message's read flag to true. The flag is
// monotonic: there is no path back to unread.
func (s *Store) MarkMessageRead(id string) (ContactMessage, error) {
	if _, err := s.db.Exec(`UPDATE messages SET read = 1 WHERE id = ?`, id); err != nil {
		return ContactMessage{}, err
	}
	var m ContactMessage
	var read int
	var created int64
	err := s.db.QueryRow(`SELECT id, name, email, message, read, created_at FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Email, &m.Message, &read, &created)
	if err != nil {
		return ContactMessage{}, err
	}
	m.Read = read == 1
	m.CreatedAt = time.Unix(0, created).UTC()
	return m, nil
}

// DeleteMessage removes a contact message. Returns ErrNotFound if absent.
func (s *Store) DeleteMessage(id string) error {
	res, err := s.db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Site settings ---

// settingsID is the fixed primary key of the singleton settings row. A fixed
// key makes the lazy create an upsert, so concurrent first reads cannot leave
// two rows behind.
const settingsID = "default"

// GetSettings returns the singleton settings row, creating it with the
// given default title on first read.
func (s *Store) GetSettings(defaultTitle string) (SiteSettings, error) {
	if err := s.ensureSettings(defaultTitle); err != nil {
		return SiteSettings{}, err
	}
	return s.readSettings()
}

func (s *Store) ensureSettings(defaultTitle string) error {
	_, err := s.db.Exec(`INSERT INTO settings (id, site_title, site_subtitle, header_image) VALUES (?, ?, NULL, NULL) ON CONFLICT(id) DO NOTHING`,
		settingsID, defaultTitle)
	return err
}

func (s *Store) readSettings() (SiteSettings, error) {
	var settings SiteSettings
	var subtitle, header sql.NullString
	err := s.db.QueryRow(`SELECT id, site_title, site_subtitle, header_image FROM settings WHERE id = ?`, settingsID).
		Scan(&settings.ID, &settings.SiteTitle, &subtitle, &header)
	if err != nil {
		return SiteSettings{}, err
	}
	settings.SiteSubtitle = nullableString(subtitle)
	settings.HeaderImage = nullableString(header)
	return settings, nil
}

// UpdateSettings applies a partial update to the singleton row, creating it
// first if it does not exist yet. Each present field is written in a single
// UPDATE, so two concurrent updates touching different fields both stick.
func (s *Store) UpdateSettings(defaultTitle string, upd SettingsUpdate) (SiteSettings, error) {
	if err := s.ensureSettings(defaultTitle); err != nil {
		return SiteSettings{}, err
	}

	var sets []string
	var args []any
	if upd.SiteTitle != nil {
		sets = append(sets, "site_title = ?")
		args = append(args, *upd.SiteTitle)
	}
	if upd.SiteSubtitle != nil {
		sets = append(sets, "site_subtitle = ?")
		args = append(args, toNullString(upd.SiteSubtitle))
	}
	if upd.HeaderImage != nil {
		sets = append(sets, "header_image = ?")
		args = append(args, toNullString(upd.HeaderImage))
	}
	if len(sets) > 0 {
		args = append(args, settingsID)
		if _, err := s.db.Exec(`UPDATE settings SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return SiteSettings{}, err
		}
	}
	return s.readSettings()
}

// --- Users ---

// GetUserByUsername returns the admin user with the given username.
func (s *Store) GetUserByUsername(username string) (User, error) {
	var u User
	err := s.db.QueryRow(`SELECT id, username, password FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// SeedUser creates the admin user if no user with that username exists.
func (s *Store) SeedUser(username, passwordHash string) error {
	_, err := s.GetUserByUsername(username)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO users (id, username, password) VALUES (?, ?, ?)`,
		uuid.NewString(), username, passwordHash)
	return err
}

// Stats aggregates the counters shown on the admin dashboard.
func (s *Store) Stats() (DashboardStats, error) {
	var st DashboardStats
	row := s.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM poems),
		(SELECT COUNT(*) FROM poems WHERE published = 0),
		(SELECT COUNT(*) FROM submissions),
		(SELECT COUNT(*) FROM messages WHERE read = 0)`)
	if err := row.Scan(&st.Poems, &st.Drafts, &st.PendingSubmissions, &st.UnreadMessages); err != nil {
		return DashboardStats{}, err
	}
	return st, nil
}
