package http

import (
	"net/http"
	"time"

	"bloom-client/internal/api"
	"bloom-client/internal/session"
	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	uicookie "github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures the web front end.
type Options struct {
	Log           *zap.Logger
	API           *api.Client
	Policy        session.Policy
	SecureCookies bool
	// UISecret signs the UI session cookie holding the CSRF token. A random one is used when empty.
	UISecret string
	// AuthRateLimit caps login and register attempts per client IP per minute.
	AuthRateLimit uint
	Development   bool
}

func NewRouter(opts Options) (*gin.Engine, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	secret := opts.UISecret
	if secret == "" {
		generated, err := newToken(32)
		if err != nil {
			return nil, err
		}
		secret = generated
	}
	limit := opts.AuthRateLimit
	if limit == 0 {
		limit = 5
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(SecureHeaders(opts.Development))
	router.SetHTMLTemplate(Templates())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	store := uicookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	router.Use(sessions.Sessions("bloom_ui", store))
	router.Use(CSRFProtection())
	router.Use(RouteGuard())

	limiter := ratelimit.RateLimiter(ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	}), &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.String(http.StatusTooManyRequests, "Too many attempts. Try again in %s.", time.Until(info.ResetTime).Round(time.Second))
		},
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	})

	h := NewHandler(opts.API, opts.Policy, opts.SecureCookies, log)
	ws := NewWSHandler(opts.API, log)

	router.GET("/", h.Index)
	router.GET("/login", h.ShowLogin)
	router.POST("/login", limiter, h.Login)
	router.GET("/register", h.ShowRegister)
	router.POST("/register", limiter, h.Register)
	router.POST("/logout", h.Logout)

	survey := router.Group("/survey")
	{
		survey.GET("", h.ShowSurvey)
		survey.POST("/answer", h.Answer)
		survey.POST("/skip", h.Skip)
		survey.GET("/overview", h.ShowOverview)
		survey.POST("/recalc", h.Recalc)
		survey.GET("/ws", ws.ServeWS)
	}

	return router, nil
}
