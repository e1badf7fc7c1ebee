package http

import (
	"bloom-client/internal/api"
	"bloom-client/internal/app"
	"bloom-client/internal/infra/cookie"
	"bloom-client/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler owns the per-request wiring of cookie sessions, API clients and controllers.
type Handler struct {
	api     *api.Client
	policy  session.Policy
	cookies cookie.Options
	log     *zap.Logger
}

func NewHandler(client *api.Client, policy session.Policy, secureCookies bool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		api:    client,
		policy: policy,
		cookies: cookie.Options{
			Secure:   secureCookies,
			Readable: []session.Key{session.Username},
		},
		log: log,
	}
}

func (h *Handler) session(c *gin.Context) *session.Session {
	return session.New(cookie.NewSessionStore(c.Writer, c.Request, h.cookies), h.policy)
}

func (h *Handler) controller(sess *session.Session) *app.SurveyController {
	return app.NewSurveyController(h.api.WithTokens(sess), sess, h.log)
}

func (h *Handler) page(c *gin.Context, sess *session.Session, title string) page {
	return page{
		Title:    title,
		CSRF:     csrfToken(c),
		Username: sess.Username(c.Request.Context()),
	}
}
