package http

import (
	"net/http"
	"net/url"
	"strings"

	"bloom-client/internal/infra/cookie"
	"github.com/gin-gonic/gin"
)

var publicPaths = map[string]struct{}{
	"/":         {},
	"/login":    {},
	"/register": {},
}

// Protected reports whether path requires an access credential: /survey and anything below it.
// Allow-listed public paths and unmatched paths are not protected.
func Protected(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return false
	}
	return path == "/survey" || strings.HasPrefix(path, "/survey/")
}

// LoginRedirect is the login URL carrying the original path and query as next.
func LoginRedirect(u *url.URL) string {
	next := u.Path
	if u.RawQuery != "" {
		next += "?" + u.RawQuery
	}
	return "/login?next=" + url.QueryEscape(next)
}

// RouteGuard sends requests for protected paths without an access_token cookie to the login
// page. It checks presence only.
func RouteGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Protected(c.Request.URL.Path) || cookie.HasAccessToken(c.Request) {
			c.Next()
			return
		}
		redirect(c, LoginRedirect(c.Request.URL))
		c.Abort()
	}
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

func redirect(c *gin.Context, location string) {
	if isHTMX(c) {
		c.Header("HX-Redirect", location)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusFound, location)
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
