package http

import (
	"errors"
	"net/http"

	"bloom-client/internal/api"
	"bloom-client/internal/app"
	"bloom-client/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultLanding = "/survey"

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", h.page(c, h.session(c), "Welcome"))
}

func (h *Handler) ShowLogin(c *gin.Context) {
	p := h.page(c, h.session(c), "Log in")
	p.Next = c.Query("next")
	c.HTML(http.StatusOK, "login.html", p)
}

func (h *Handler) ShowRegister(c *gin.Context) {
	p := h.page(c, h.session(c), "Register")
	p.Next = c.Query("next")
	c.HTML(http.StatusOK, "register.html", p)
}

func (h *Handler) Login(c *gin.Context) {
	h.authenticate(c, "login.html", "Log in", func(auth *app.AuthService, username, password string) error {
		_, err := auth.Login(c.Request.Context(), username, password)
		return err
	})
}

func (h *Handler) Register(c *gin.Context) {
	h.authenticate(c, "register.html", "Register", func(auth *app.AuthService, username, password string) error {
		_, err := auth.Register(c.Request.Context(), username, password)
		return err
	})
}

func (h *Handler) authenticate(c *gin.Context, tmpl, title string, run func(*app.AuthService, string, string) error) {
	sess := h.session(c)
	username := c.PostForm("username")
	next := c.PostForm("next")

	err := run(app.NewAuthService(h.api, sess, h.log), username, c.PostForm("password"))
	if err == nil {
		redirect(c, SafeNext(next, defaultLanding))
		return
	}

	h.log.Info("authentication failed", zap.String("username", username), zap.String("form", tmpl), zap.Error(err))
	p := h.page(c, sess, title)
	p.Next = next
	p.Form.Username = username
	p.Error = authMessage(err)
	c.HTML(authStatus(err), tmpl, p)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := app.NewAuthService(h.api, h.session(c), h.log).Logout(c.Request.Context()); err != nil {
		h.log.Error("logout failed", zap.Error(err))
	}
	redirect(c, "/")
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredentials):
		return "Please enter a username and password."
	case errors.Is(err, domain.ErrPasswordTooShort):
		return "Password must be at least 6 characters."
	default:
		return api.Message(err)
	}
}

func authStatus(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, domain.ErrMissingCredentials), errors.Is(err, domain.ErrPasswordTooShort):
		return http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}
