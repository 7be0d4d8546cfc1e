// Package view renders the HTML pages. Every page has its own context type.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"decepticon/internal/model"
	"decepticon/internal/session"
)

// Page names accepted by the renderer.
const (
	PageLogin    = "login"
	PageRegister = "register"
	PageUser     = "user"
	PageAdmin    = "admin"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoginPage is the context of the login form.
type LoginPage struct {
	session.Flash
	Email string
}

// RegisterPage is the context of the registration form.
type RegisterPage struct {
	session.Flash
	Email string
}

// UserPage is the context of the member landing page.
type UserPage struct {
	session.Flash
	Email string
}

// UserRow is one line of the admin listing. It has no password field.
type UserRow struct {
	ID        uint
	Email     string
	Role      model.Role
	CreatedAt time.Time
}

// AdminPage is the context of the admin listing.
type AdminPage struct {
	session.Flash
	Email string
	Users []UserRow
}

// NewUserRows maps users to listing rows, keeping their order.
func NewUserRows(users []model.User) []UserRow {
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	return rows
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

// Ensure Renderer implements echo.Renderer
var _ echo.Renderer = (*Renderer)(nil)

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageLogin, PageRegister, PageUser, PageAdmin} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the named page. data must be the page's context type.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	if err := checkContext(name, data); err != nil {
		return err
	}
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func checkContext(name string, data interface{}) error {
	var ok bool
	switch name {
	case PageLogin:
		_, ok = data.(LoginPage)
	case PageRegister:
		_, ok = data.(RegisterPage)
	case PageUser:
		_, ok = data.(UserPage)
	case PageAdmin:
		_, ok = data.(AdminPage)
	default:
		return fmt.Errorf("unknown page %q", name)
	}
	if !ok {
		return fmt.Errorf("page %q: unexpected context %T", name, data)
	}
	return nil
}
