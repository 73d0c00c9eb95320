package handlers

import (
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PagesHandler serves the htmx page shell and its fragments. The index
// route returns a full document; every other page is a fragment meant to
// be swapped into the shell, so direct navigation redirects to the index.
type PagesHandler struct {
	tmpl       *template.Template
	cookieName string
	secure     bool
	logger     *zap.Logger
}

// NewPagesHandler creates a new pages handler
func NewPagesHandler(tmpl *template.Template, cookieName string, secure bool, logger *zap.Logger) *PagesHandler {
	return &PagesHandler{
		tmpl:       tmpl,
		cookieName: cookieName,
		secure:     secure,
		logger:     logger,
	}
}

// Index handles GET /
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index")
}

// Login handles GET /login
func (h *PagesHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.fragment(w, r, "login")
}

// Register handles GET /register
func (h *PagesHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.fragment(w, r, "register")
}

// Main handles GET /main
func (h *PagesHandler) Main(w http.ResponseWriter, r *http.Request) {
	h.fragment(w, r, "main")
}

// Profile handles GET /profile
func (h *PagesHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.fragment(w, r, "profile")
}

// Logout handles GET /logout. It drops the session cookie before handing
// the login fragment back.
func (h *PagesHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !isHTMXRequest(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.render(w, "login")
}

func (h *PagesHandler) fragment(w http.ResponseWriter, r *http.Request, name string) {
	if !isHTMXRequest(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, name)
}

func (h *PagesHandler) render(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, nil); err != nil {
		h.logger.Error("failed to render template", zap.String("template", name), zap.Error(err))
	}
}

func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
