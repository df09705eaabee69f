package verses

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "verses.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreatePoem(t *testing.T, s *Store, p Poem) Poem {
	t.Helper()
	created, err := s.CreatePoem(p)
	if err != nil {
		t.Fatalf("CreatePoem(%q) failed: %v", p.Slug, err)
	}
	return created
}

func TestCreateAndGetPoem(t *testing.T) {
	s := setupTestStore(t)

	created := mustCreatePoem(t, s, Poem{
		Title:     "Senja di Pelabuhan",
		Slug:      "senja-di-pelabuhan",
		Content:   "Di ujung dermaga\nsenja menunggu\nkapal yang tak kunjung pulang",
		Published: true,
	})

	if created.ID == "" {
		t.Fatal("created poem should have an ID")
	}
	if created.Author != "Admin" {
		t.Errorf("Author = %q, want default %q", created.Author, "Admin")
	}
	if created.Excerpt == nil {
		t.Fatal("Excerpt should be derived on create")
	}
	want := "Di ujung dermaga senja menunggu kapal yang tak kunjung pulang..."
	if *created.Excerpt != want {
		t.Errorf("Excerpt = %q, want %q", *created.Excerpt, want)
	}

	got, err := s.GetPoem("senja-di-pelabuhan")
	if err != nil {
		t.Fatalf("GetPoem failed: %v", err)
	}
	if got.ID != created.ID || got.Title != created.Title || got.Content != created.Content {
		t.Errorf("GetPoem = %+v, want %+v", got, created)
	}
	if got.Excerpt == nil || *got.Excerpt != want {
		t.Errorf("stored Excerpt = %v, want %q", got.Excerpt, want)
	}
}

func TestGetPoemNotFound(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.GetPoem("nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePoemDuplicateSlug(t *testing.T) {
	s := setupTestStore(t)

	mustCreatePoem(t, s, Poem{Title: "One", Slug: "dup", Content: "c", Published: true})
	_, err := s.CreatePoem(Poem{Title: "Two", Slug: "dup", Content: "c", Published: true})
	if !isUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestUpdatePoemRederivesExcerpt(t *testing.T) {
	s := setupTestStore(t)

	mustCreatePoem(t, s, Poem{Title: "T", Slug: "t", Content: "old content", Published: true})

	newContent := "fresh\nnew\ncontent"
	updated, err := s.UpdatePoem("t", PoemUpdate{Content: &newContent})
	if err != nil {
		t.Fatalf("UpdatePoem failed: %v", err)
	}
	if updated.Excerpt == nil || *updated.Excerpt != "fresh new content..." {
		t.Errorf("Excerpt = %v, want %q", updated.Excerpt, "fresh new content...")
	}
}

func TestUpdatePoemLeavesExcerptWithoutContent(t *testing.T) {
	s := setupTestStore(t)

	created := mustCreatePoem(t, s, Poem{Title: "T", Slug: "t", Content: "stable content", Published: true})

	title := "New Title"
	updated, err := s.UpdatePoem("t", PoemUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdatePoem failed: %v", err)
	}
	if updated.Title != "New Title" {
		t.Errorf("Title = %q, want %q", updated.Title, "New Title")
	}
	if updated.Excerpt == nil || *updated.Excerpt != *created.Excerpt {
		t.Errorf("Excerpt changed on title-only update: %v", updated.Excerpt)
	}
}

func TestUpdatePoemNotFound(t *testing.T) {
	s := setupTestStore(t)

	title := "x"
	if _, err := s.UpdatePoem("missing", PoemUpdate{Title: &title}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePoem(t *testing.T) {
	s := setupTestStore(t)

	mustCreatePoem(t, s, Poem{Title: "T", Slug: "gone", Content: "c", Published: true})
	if err := s.DeletePoem("gone"); err != nil {
		t.Fatalf("DeletePoem failed: %v", err)
	}
	if _, err := s.GetPoem("gone"); err != ErrNotFound {
		t.Errorf("poem should be gone, got err %v", err)
	}
	if err := s.DeletePoem("gone"); err != ErrNotFound {
		t.Errorf("second delete should return ErrNotFound, got %v", err)
	}
}

func TestListPoemsFilters(t *testing.T) {
	s := setupTestStore(t)

	mustCreatePoem(t, s, Poem{Title: "P1", Slug: "p1", Content: "c", Published: true})
	time.Sleep(2 * time.Millisecond)
	mustCreatePoem(t, s, Poem{Title: "P2", Slug: "p2", Content: "c", Published: true})
	time.Sleep(2 * time.Millisecond)
	mustCreatePoem(t, s, Poem{Title: "Draft", Slug: "draft", Content: "c", Published: false})

	published := true
	got, err := s.ListPoems(PoemFilter{Published: &published})
	if err != nil {
		t.Fatalf("ListPoems failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("published count = %d, want 2", len(got))
	}
	if got[0].Slug != "p2" {
		t.Errorf("newest first: got[0] = %s, want p2", got[0].Slug)
	}

	drafts := false
	got, err = s.ListPoems(PoemFilter{Published: &drafts})
	if err != nil {
		t.Fatalf("ListPoems failed: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "draft" {
		t.Errorf("draft filter = %v, want only draft", got)
	}

	got, err = s.ListPoems(PoemFilter{})
	if err != nil {
		t.Fatalf("ListPoems failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("unfiltered count = %d, want 3", len(got))
	}
}

func TestListPoemsLatestCap(t *testing.T) {
	s := setupTestStore(t)

	slugs := []string{"a", "b", "c", "d", "e", "f"}
	for _, slug := range slugs {
		mustCreatePoem(t, s, Poem{Title: slug, Slug: slug, Content: "c", Published: true})
		time.Sleep(2 * time.Millisecond)
	}

	published := true
	got, err := s.ListPoems(PoemFilter{Published: &published, Limit: 4})
	if err != nil {
		t.Fatalf("ListPoems failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("limit: got %d poems, want 4", len(got))
	}
	if got[0].Slug != "f" || got[3].Slug != "c" {
		t.Errorf("latest window = %s..%s, want f..c", got[0].Slug, got[3].Slug)
	}
}

func featuredSlugs(t *testing.T, s *Store) []string {
	t.Helper()
	got, err := s.ListPoems(PoemFilter{Featured: true})
	if err != nil {
		t.Fatalf("ListPoems(featured) failed: %v", err)
	}
	var slugs []string
	for _, p := range got {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}

func setFeatured(t *testing.T, s *Store, slug string) {
	t.Helper()
	featured := true
	if _, err := s.UpdatePoem(slug, PoemUpdate{IsFeatured: &featured}); err != nil {
		t.Fatalf("promote %s failed: %v", slug, err)
	}
	// keep updated_at strictly ordered between promotions
	time.Sleep(2 * time.Millisecond)
}

func TestFeaturedSlotEviction(t *testing.T) {
	s := setupTestStore(t)

	for _, slug := range []string{"a", "b", "c"} {
		mustCreatePoem(t, s, Poem{Title: slug, Slug: slug, Content: "c", Published: true})
	}

	setFeatured(t, s, "a")
	setFeatured(t, s, "b")
	setFeatured(t, s, "c")

	slugs := featuredSlugs(t, s)
	if len(slugs) != 2 {
		t.Fatalf("featured count = %d, want 2 (%v)", len(slugs), slugs)
	}
	want := map[string]bool{"b": true, "c": true}
	for _, slug := range slugs {
		if !want[slug] {
			t.Errorf("featured set = %v, want {b, c}", slugs)
		}
	}
}

func TestFeaturedNeverExceedsTwo(t *testing.T) {
	s := setupTestStore(t)

	slugs := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, slug := range slugs {
		mustCreatePoem(t, s, Poem{Title: slug, Slug: slug, Content: "c", Published: true})
	}
	for _, slug := range slugs {
		setFeatured(t, s, slug)
		if n := len(featuredSlugs(t, s)); n > 2 {
			t.Fatalf("featured count = %d after promoting %s, want <= 2", n, slug)
		}
	}
}

func TestFeaturedOnCreateCountsAgainstSlots(t *testing.T) {
	s := setupTestStore(t)

	for _, slug := range []string{"a", "b"} {
		mustCreatePoem(t, s, Poem{Title: slug, Slug: slug, Content: "c", Published: true, IsFeatured: true})
		time.Sleep(2 * time.Millisecond)
	}
	mustCreatePoem(t, s, Poem{Title: "c", Slug: "c", Content: "c", Published: true, IsFeatured: true})

	if n := len(featuredSlugs(t, s)); n != 2 {
		t.Errorf("featured count after featured creates = %d, want 2", n)
	}
}

func TestDemoteIsUnconditional(t *testing.T) {
	s := setupTestStore(t)

	mustCreatePoem(t, s, Poem{Title: "a", Slug: "a", Content: "c", Published: true, IsFeatured: true})
	off := false
	if _, err := s.UpdatePoem("a", PoemUpdate{IsFeatured: &off}); err != nil {
		t.Fatalf("demote failed: %v", err)
	}
	if n := len(featuredSlugs(t, s)); n != 0 {
		t.Errorf("featured count after demote = %d, want 0", n)
	}
}

func TestApproveSubmission(t *testing.T) {
	s := setupTestStore(t)

	sub, err := s.CreateSubmission(Submission{
		Name:    "Rani",
		Email:   "rani@example.com",
		Title:   "Hujan Bulan Juni",
		Content: "tak ada yang lebih tabah\ndari hujan bulan juni",
	})
	if err != nil {
		t.Fatalf("CreateSubmission failed: %v", err)
	}

	poem, err := s.ApproveSubmission(sub.ID)
	if err != nil {
		t.Fatalf("ApproveSubmission failed: %v", err)
	}

	if poem.Published {
		t.Error("approved poem must start unpublished")
	}
	if poem.Author != "Rani" {
		t.Errorf("Author = %q, want submitter name", poem.Author)
	}
	if !strings.HasPrefix(poem.Slug, "hujan-bulan-juni-") {
		t.Errorf("Slug = %q, want hujan-bulan-juni-NNNN", poem.Slug)
	}
	if poem.Excerpt == nil || *poem.Excerpt != "tak ada yang lebih tabah dari hujan bulan juni..." {
		t.Errorf("Excerpt = %v, want derived teaser", poem.Excerpt)
	}

	if _, err := s.GetSubmission(sub.ID); err != ErrNotFound {
		t.Errorf("submission should be consumed, got err %v", err)
	}
	if _, err := s.GetPoem(poem.Slug); err != nil {
		t.Errorf("approved poem should exist: %v", err)
	}

	subs, err := s.ListSubmissions()
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("submission list should be empty, got %d", len(subs))
	}
}

func TestApproveSubmissionNotFound(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.ApproveSubmission("nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectSubmission(t *testing.T) {
	s := setupTestStore(t)

	sub, err := s.CreateSubmission(Submission{Name: "N", Title: "T", Content: "C"})
	if err != nil {
		t.Fatalf("CreateSubmission failed: %v", err)
	}
	if err := s.DeleteSubmission(sub.ID); err != nil {
		t.Fatalf("DeleteSubmission failed: %v", err)
	}
	if _, err := s.GetSubmission(sub.ID); err != ErrNotFound {
		t.Errorf("submission should be gone, got err %v", err)
	}
	poems, err := s.ListPoems(PoemFilter{})
	if err != nil {
		t.Fatalf("ListPoems failed: %v", err)
	}
	if len(poems) != 0 {
		t.Errorf("rejection must not create poems, got %d", len(poems))
	}
	if err := s.DeleteSubmission(sub.ID); err != ErrNotFound {
		t.Errorf("second reject should return ErrNotFound, got %v", err)
	}
}

func TestApproveSubmissionRetriesSlugCollision(t *testing.T) {
	s := setupTestStore(t)

	sub, err := s.CreateSubmission(Submission{Name: "N", Title: "Same Title", Content: "C"})
	if err != nil {
		t.Fatalf("CreateSubmission failed: %v", err)
	}
	// Occupy the slug the approval would derive right now.
	mustCreatePoem(t, s, Poem{
		Title:     "Same Title",
		Slug:      SubmissionSlug("Same Title", time.Now()),
		Content:   "C",
		Published: true,
	})

	poem, err := s.ApproveSubmission(sub.ID)
	if err != nil {
		// The derived millis may have ticked past the occupied slug; only a
		// unique violation would be a real failure.
		t.Fatalf("ApproveSubmission failed: %v", err)
	}
	if !strings.HasPrefix(poem.Slug, "same-title-") {
		t.Errorf("Slug = %q, want same-title-*", poem.Slug)
	}
}

func TestSettingsLazySingleton(t *testing.T) {
	s := setupTestStore(t)

	first, err := s.GetSettings("Zurayna")
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if first.SiteTitle != "Zurayna" {
		t.Errorf("SiteTitle = %q, want default", first.SiteTitle)
	}

	second, err := s.GetSettings("Other Default")
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if second.ID != first.ID || second.SiteTitle != "Zurayna" {
		t.Errorf("second read = %+v, want same row as first (%+v)", second, first)
	}
}

func TestUpdateSettings(t *testing.T) {
	s := setupTestStore(t)

	subtitle := "Ruang puisi"
	updated, err := s.UpdateSettings("Zurayna", SettingsUpdate{SiteSubtitle: &subtitle})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if updated.SiteTitle != "Zurayna" {
		t.Errorf("SiteTitle = %q, want lazily-created default", updated.SiteTitle)
	}
	if updated.SiteSubtitle == nil || *updated.SiteSubtitle != subtitle {
		t.Errorf("SiteSubtitle = %v, want %q", updated.SiteSubtitle, subtitle)
	}

	title := "Renamed"
	updated, err = s.UpdateSettings("Zurayna", SettingsUpdate{SiteTitle: &title})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if updated.SiteTitle != "Renamed" {
		t.Errorf("SiteTitle = %q, want %q", updated.SiteTitle, "Renamed")
	}
	if updated.SiteSubtitle == nil || *updated.SiteSubtitle != subtitle {
		t.Errorf("partial update clobbered subtitle: %v", updated.SiteSubtitle)
	}
}

func TestSettingsConcurrentFirstRead(t *testing.T) {
	s := setupTestStore(t)

	const readers = 8
	results := make([]SiteSettings, readers)
	errs := make([]error, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.GetSettings("Zurayna")
		}(i)
	}
	wg.Wait()

	for i := 0; i < readers; i++ {
		if errs[i] != nil {
			t.Fatalf("GetSettings #%d failed: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID {
			t.Errorf("reader %d got row %q, reader 0 got %q", i, results[i].ID, results[0].ID)
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count); err != nil {
		t.Fatalf("counting settings rows: %v", err)
	}
	if count != 1 {
		t.Errorf("settings rows = %d, want exactly 1", count)
	}
}

func TestUpdateSettingsConcurrentFields(t *testing.T) {
	s := setupTestStore(t)

	subtitle := "Ruang puisi"
	header := "https://media.example.com/header.jpg"
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = s.UpdateSettings("Zurayna", SettingsUpdate{SiteSubtitle: &subtitle})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = s.UpdateSettings("Zurayna", SettingsUpdate{HeaderImage: &header})
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("UpdateSettings #%d failed: %v", i, err)
		}
	}

	settings, err := s.GetSettings("Zurayna")
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.SiteSubtitle == nil || *settings.SiteSubtitle != subtitle {
		t.Errorf("concurrent update lost subtitle: %v", settings.SiteSubtitle)
	}
	if settings.HeaderImage == nil || *settings.HeaderImage != header {
		t.Errorf("concurrent update lost header image: %v", settings.HeaderImage)
	}
}

func TestMessageReadIsMonotonic(t *testing.T) {
	s := setupTestStore(t)

	msg, err := s.CreateMessage(ContactMessage{Name: "N", Email: "n@example.com", Message: "hi"})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	if msg.Read {
		t.Error("new message should be unread")
	}

	before, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	marked, err := s.MarkMessageRead(msg.ID)
	if err != nil {
		t.Fatalf("MarkMessageRead failed: %v", err)
	}
	if !marked.Read {
		t.Error("message should be read after marking")
	}

	after, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if after.UnreadMessages != before.UnreadMessages-1 {
		t.Errorf("unread count = %d, want %d", after.UnreadMessages, before.UnreadMessages-1)
	}

	// Marking again keeps it read.
	again, err := s.MarkMessageRead(msg.ID)
	if err != nil {
		t.Fatalf("second MarkMessageRead failed: %v", err)
	}
	if !again.Read {
		t.Error("read flag must stay true")
	}
}

func TestMarkMessageReadNotFound(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.MarkMessageRead("nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	s := setupTestStore(t)

	msg, err := s.CreateMessage(ContactMessage{Name: "N", Email: "n@example.com", Message: "hi"})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	if err := s.DeleteMessage(msg.ID); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if err := s.DeleteMessage(msg.ID); err != ErrNotFound {
		t.Errorf("second delete should return ErrNotFound, got %v", err)
	}
}

func TestSeedUserIsIdempotent(t *testing.T) {
	s := setupTestStore(t)

	hash := hashPassword("admin123")
	if err := s.SeedUser("admin", hash); err != nil {
		t.Fatalf("SeedUser failed: %v", err)
	}
	if err := s.SeedUser("admin", hashPassword("different")); err != nil {
		t.Fatalf("second SeedUser failed: %v", err)
	}

	user, err := s.GetUserByUsername("admin")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if user.Password != hash {
		t.Error("seeding again must not overwrite the existing user")
	}
}
