package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"decepticon/internal/handler"
	"decepticon/internal/model"
	"decepticon/internal/repository"
	"decepticon/internal/router"
	"decepticon/internal/service"
	"decepticon/internal/session"
	"decepticon/internal/view"
)

// memoryUserRepository is an in-memory credential store.
type memoryUserRepository struct {
	txMu    sync.Mutex
	mu      sync.Mutex
	users   []model.User
	clock   time.Time
	findErr error
}

var _ repository.UserRepository = (*memoryUserRepository)(nil)

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.clock = r.clock.Add(time.Minute)
	user.ID = uint(len(r.users) + 1)
	user.CreatedAt = r.clock
	r.users = append(r.users, *user)
	return nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *memoryUserRepository) ListAll(context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, len(r.users))
	copy(out, r.users)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryUserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.UserRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(ctx, r)
}

// failingDeleteStore loses its backend whenever a session is deleted.
type failingDeleteStore struct {
	*session.MemoryStore
}

func (s failingDeleteStore) Delete(context.Context, string) error {
	return errors.New("redis: connection reset")
}

type testApp struct {
	server *httptest.Server
	repo   *memoryUserRepository
	store  *session.MemoryStore
}

func newTestApp(t *testing.T, wrap func(*session.MemoryStore) session.Store) *testApp {
	t.Helper()
	repo := newMemoryUserRepository()
	mem := session.NewMemoryStore()
	var store session.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}
	sessions := session.NewManager(store, session.Options{
		Secret:     "test-secret",
		TTL:        time.Hour,
		CookieName: "test_sid",
	})

	e := echo.New()
	e.Logger.SetOutput(io.Discard)
	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	e.Renderer = renderer

	router.Register(e,
		sessions,
		handler.NewAuthHandler(service.NewAuthService(repo), sessions),
		handler.NewUserHandler(service.NewUserService(repo)),
	)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testApp{server: srv, repo: repo, store: mem}
}

// client is one browser: its own cookie jar, redirects not followed.
type client struct {
	t    *testing.T
	app  *testApp
	http *http.Client
}

func (a *testApp) newClient(t *testing.T) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, app: a, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type response struct {
	status   int
	location string
	body     string
	header   http.Header
}

func (c *client) do(req *http.Request) response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body), header: resp.Header}
}

func (c *client) get(path string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.app.server.URL+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) post(path, email, password string) response {
	c.t.Helper()
	form := url.Values{"email": {email}, "password": {password}}
	req, err := http.NewRequest(http.MethodPost, c.app.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

var flashPattern = regexp.MustCompile(`<div class="flash flash-(success|error)">([^<]*)</div>`)

func flashes(body string) map[string]string {
	out := map[string]string{}
	for _, m := range flashPattern.FindAllStringSubmatch(body, -1) {
		out[m[1]] = m[2]
	}
	return out
}

func TestScenario(t *testing.T) {
	app := newTestApp(t, nil)

	alice := app.newClient(t)
	res := alice.post("/register", "a@x.com", "pw1")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/admin", res.location)

	bob := app.newClient(t)
	res = bob.post("/register", "b@x.com", "pw2")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/user", res.location)

	a, err := app.repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, a.Role)
	b, err := app.repo.FindByEmail(context.Background(), "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, b.Role)

	mallory := app.newClient(t)
	res = mallory.post("/login", "a@x.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, handler.MsgInvalidCredentials, flashes(res.body)["error"])
	assert.Equal(t, "/login", mallory.get("/user").location)

	res = bob.get("/logout")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)

	res = bob.get("/user")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
}

func TestRoot_RedirectsToLogin(t *testing.T) {
	res := newTestApp(t, nil).newClient(t).get("/")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
}

func TestForms_Render(t *testing.T) {
	c := newTestApp(t, nil).newClient(t)

	res := c.get("/login")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `action="/login"`)

	res = c.get("/register")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `action="/register"`)
}

func TestGuards_Anonymous(t *testing.T) {
	c := newTestApp(t, nil).newClient(t)

	res := c.get("/admin")
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Access denied", res.body)

	res = c.get("/user")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
}

func TestGuards_UserCannotSeeAdmin(t *testing.T) {
	app := newTestApp(t, nil)
	app.newClient(t).post("/register", "a@x.com", "pw1")

	bob := app.newClient(t)
	bob.post("/register", "b@x.com", "pw2")

	res := bob.get("/admin")
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Access denied", res.body)

	res = bob.get("/user")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Hello, b@x.com")
}

func TestFlash_ShownExactlyOnce(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.newClient(t)
	alice.post("/register", "a@x.com", "pw1")

	first := alice.get("/admin")
	assert.Equal(t, http.StatusOK, first.status)
	assert.Equal(t, service.MsgRegisteredAdmin, flashes(first.body)["success"])

	second := alice.get("/admin")
	assert.Equal(t, http.StatusOK, second.status)
	assert.Empty(t, flashes(second.body))

	bob := app.newClient(t)
	bob.post("/register", "b@x.com", "pw2")
	assert.Equal(t, service.MsgRegisteredUser, flashes(bob.get("/user").body)["success"])
	assert.Empty(t, flashes(bob.get("/user").body))
}

func TestLogin_RoundTrip(t *testing.T) {
	app := newTestApp(t, nil)
	app.newClient(t).post("/register", "a@x.com", "pw1")
	app.newClient(t).post("/register", "b@x.com", "pw2")

	c := app.newClient(t)
	res := c.post("/login", "b@x.com", "pw2")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/user", res.location)
	assert.Equal(t, "Welcome back, b@x.com!", flashes(c.get("/user").body)["success"])

	admin := app.newClient(t)
	res = admin.post("/login", "a@x.com", "pw1")
	assert.Equal(t, "/admin", res.location)

	for _, wrong := range []string{"pw1", "PW2", "pw2 ", "", "pw"} {
		other := app.newClient(t)
		res := other.post("/login", "b@x.com", wrong)
		assert.NotEqual(t, http.StatusFound, res.status, "password %q", wrong)
		assert.Equal(t, "/login", other.get("/user").location)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	app := newTestApp(t, nil)
	app.newClient(t).post("/register", "a@x.com", "pw1")

	wrongPassword := app.newClient(t).post("/login", "a@x.com", "nope")
	unknownEmail := app.newClient(t).post("/login", "ghost@x.com", "nope")

	assert.Equal(t, wrongPassword.status, unknownEmail.status)
	assert.Equal(t, flashes(wrongPassword.body), flashes(unknownEmail.body))
	assert.Equal(t, handler.MsgInvalidCredentials, flashes(unknownEmail.body)["error"])
}

func TestRegister_Duplicate(t *testing.T) {
	app := newTestApp(t, nil)
	app.newClient(t).post("/register", "a@x.com", "pw1")

	c := app.newClient(t)
	res := c.post("/register", "a@x.com", "other")
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, handler.MsgUserExists, flashes(res.body)["error"])
	assert.Contains(t, res.body, `value="a@x.com"`)

	assert.Equal(t, "/login", c.get("/user").location)
	n, err := app.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestForms_Validation(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		email    string
		password string
	}{
		{"register without password", "/register", "a@x.com", ""},
		{"register bad email", "/register", "not-an-email", "pw1"},
		{"login without email", "/login", "", "pw1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, nil)
			res := app.newClient(t).post(tt.path, tt.email, tt.password)
			assert.Equal(t, http.StatusBadRequest, res.status)
			assert.Equal(t, handler.MsgInvalidForm, flashes(res.body)["error"])

			n, err := app.repo.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestRegister_PasswordLength(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		wantStatus int
	}{
		{"72 bytes is accepted", strings.Repeat("a", 72), http.StatusFound},
		{"73 bytes re-renders the form", strings.Repeat("a", 73), http.StatusBadRequest},
		{"multibyte over 72 bytes re-renders the form", strings.Repeat("€", 25), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, nil)
			res := app.newClient(t).post("/register", "long@x.com", tt.password)
			assert.Equal(t, tt.wantStatus, res.status)

			n, err := app.repo.Count(context.Background())
			require.NoError(t, err)
			if tt.wantStatus == http.StatusFound {
				assert.Equal(t, "/admin", res.location)
				assert.Equal(t, int64(1), n)
				return
			}
			assert.Equal(t, handler.MsgInvalidForm, flashes(res.body)["error"])
			assert.Zero(t, n)
		})
	}
}

func TestAdmin_ListsNewestFirstWithoutHashes(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.newClient(t)
	alice.post("/register", "a@x.com", "pw1")
	app.newClient(t).post("/register", "b@x.com", "pw2")
	app.newClient(t).post("/register", "c@x.com", "pw3")

	res := alice.get("/admin")
	require.Equal(t, http.StatusOK, res.status)

	table := res.body[strings.Index(res.body, "<tbody>"):]
	ic := strings.Index(table, "c@x.com")
	ib := strings.Index(table, "b@x.com")
	ia := strings.Index(table, "a@x.com")
	assert.True(t, ic >= 0 && ic < ib && ib < ia, "expected newest first")
	assert.NotContains(t, res.body, "$2a$")
}

func TestLogout_FlashOnNextLoginPage(t *testing.T) {
	app := newTestApp(t, nil)
	c := app.newClient(t)
	c.post("/register", "a@x.com", "pw1")
	c.get("/admin")

	res := c.get("/logout")
	assert.Equal(t, "/login", res.location)

	first := c.get("/login")
	assert.Equal(t, service.MsgLoggedOut, flashes(first.body)["success"])
	assert.Empty(t, flashes(c.get("/login").body))
	assert.Equal(t, http.StatusForbidden, c.get("/admin").status)
}

func TestLogout_AnonymousStoresNothing(t *testing.T) {
	app := newTestApp(t, nil)

	res := app.newClient(t).get("/logout")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Zero(t, app.store.Len())
}

func TestLogout_StoreFailureStillRedirects(t *testing.T) {
	app := newTestApp(t, func(m *session.MemoryStore) session.Store {
		return failingDeleteStore{MemoryStore: m}
	})
	c := app.newClient(t)

	// Registration on a fresh session never deletes, so it succeeds.
	res := c.post("/register", "a@x.com", "pw1")
	require.Equal(t, "/admin", res.location)

	res = c.get("/logout")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Equal(t, http.StatusForbidden, c.get("/admin").status)
}

func TestStorageFailure_Generic500(t *testing.T) {
	app := newTestApp(t, nil)
	app.repo.findErr = errors.New("Error 2003: Can't connect to MySQL server on 'db:3306'")

	res := app.newClient(t).post("/login", "a@x.com", "pw1")
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, "Internal server error", res.body)
	assert.NotContains(t, res.body, "MySQL")
}

func TestSecurityHeaders(t *testing.T) {
	res := newTestApp(t, nil).newClient(t).get("/login")

	assert.Equal(t, "nosniff", res.header.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", res.header.Get("X-Frame-Options"))
	assert.NotEmpty(t, res.header.Get("Content-Security-Policy"))
}

func TestSessionCookie_Attributes(t *testing.T) {
	app := newTestApp(t, nil)
	noJar := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	form := url.Values{"email": {"a@x.com"}, "password": {"pw1"}}
	resp, err := noJar.PostForm(app.server.URL+"/register", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw := resp.Header.Get("Set-Cookie")
	assert.Contains(t, raw, "test_sid=")
	assert.Contains(t, raw, "HttpOnly")
	assert.Contains(t, raw, "SameSite=Strict")
	assert.NotContains(t, raw, "Secure")
}
