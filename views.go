package verses

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Views holds the templ components for the thin HTML surface: the login
// page and the admin dashboard. The defaults are intentionally plain;
// embedders replace them via WithViews.
type Views struct {
	Login     func() templ.Component
	Dashboard func(stats DashboardStats) templ.Component
}

func defaultViews(siteName string) Views {
	return Views{
		Login:     func() templ.Component { return loginPage(siteName) },
		Dashboard: func(stats DashboardStats) templ.Component { return dashboardPage(siteName, stats) },
	}
}

func loginPage(siteName string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>%[1]s admin login</title></head>
<body>
<main>
<h1>%[1]s admin</h1>
<form id="login-form">
<label>Username <input name="username" autocomplete="username"></label>
<label>Password <input name="password" type="password" autocomplete="current-password"></label>
<button type="submit">Sign in</button>
<p id="login-error" hidden>Invalid credentials</p>
</form>
<script>
document.getElementById('login-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const data = Object.fromEntries(new FormData(e.target));
  const res = await fetch('/auth/login', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(data),
  });
  if (res.ok) { location.href = '/admin/dashboard'; }
  else { document.getElementById('login-error').hidden = false; }
});
</script>
</main>
</body>
</html>`, html.EscapeString(siteName))
		return err
	})
}

func dashboardPage(siteName string, stats DashboardStats) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>%[1]s dashboard</title></head>
<body>
<main>
<h1>Dashboard</h1>
<ul>
<li>Poems: %[2]d (%[3]d drafts)</li>
<li>Pending submissions: %[4]d</li>
<li>Unread messages: %[5]d</li>
</ul>
<form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>
</main>
</body>
</html>`, html.EscapeString(siteName), stats.Poems, stats.Drafts, stats.PendingSubmissions, stats.UnreadMessages)
		return err
	})
}
