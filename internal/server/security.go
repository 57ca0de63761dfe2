package server

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/logging"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	CSP                 *CSPConfig
	XFrameOptions       string
	XContentTypeNoSniff bool
	ReferrerPolicy      string
	// AllowedOrigins may call state-changing endpoints and open websockets in
	// addition to the server's own origin.
	AllowedOrigins []string
	// AllowAnyOrigin answers CORS preflights with a wildcard. Development only.
	AllowAnyOrigin bool
	Logger         logging.Logger
}

// CSPConfig holds Content Security Policy configuration
type CSPConfig struct {
	DefaultSrc     []string
	ScriptSrc      []string
	StyleSrc       []string
	ImgSrc         []string
	ConnectSrc     []string
	MediaSrc       []string
	FrameSrc       []string
	ObjectSrc      []string
	FrameAncestors []string
}

// DefaultSecurityConfig returns a secure default configuration
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		CSP: &CSPConfig{
			DefaultSrc: []string{"'self'"},
			ScriptSrc:  []string{"'self'"},
			StyleSrc:   []string{"'self'", "'unsafe-inline'"},
			// Kit images and videos are hosted anywhere.
			ImgSrc:         []string{"'self'", "data:", "https:"},
			MediaSrc:       []string{"'self'", "https:"},
			FrameSrc:       []string{"https://www.youtube.com", "https://player.vimeo.com"},
			ConnectSrc:     []string{"'self'", "ws:", "wss:"},
			ObjectSrc:      []string{"'none'"},
			FrameAncestors: []string{"'self'"},
		},
		XFrameOptions:       "SAMEORIGIN",
		XContentTypeNoSniff: true,
		ReferrerPolicy:      "strict-origin-when-cross-origin",
	}
}

// SecurityConfigFromAppConfig derives the security settings from the server
// section.
func SecurityConfigFromAppConfig(cfg config.ServerConfig, logger logging.Logger) *SecurityConfig {
	sc := DefaultSecurityConfig()
	sc.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sc.AllowAnyOrigin = cfg.Environment == "development"
	if len(sc.AllowedOrigins) > 0 {
		sc.CSP.FrameAncestors = append(sc.CSP.FrameAncestors, sc.AllowedOrigins...)
		sc.XFrameOptions = ""
	}
	sc.Logger = logger
	return sc
}

// SecurityMiddleware applies the security headers and rejects
// state-changing requests from foreign origins.
func SecurityMiddleware(secConfig *SecurityConfig) func(http.Handler) http.Handler {
	if secConfig == nil {
		secConfig = DefaultSecurityConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applySecurityHeaders(w, secConfig)

			if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions {
				if !isValidOrigin(r, secConfig.AllowedOrigins) {
					if secConfig.Logger != nil {
						secConfig.Logger.Warn(r.Context(),
							errors.NewInvariantViolation("ERR_INVALID_ORIGIN", "request from a foreign origin"),
							"Security: Invalid origin",
							"origin", r.Header.Get("Origin"),
							"referer", r.Header.Get("Referer"),
							"ip", getClientIP(r))
					}
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func applySecurityHeaders(w http.ResponseWriter, config *SecurityConfig) {
	h := w.Header()
	if config.CSP != nil {
		h.Set("Content-Security-Policy", buildCSPHeader(config.CSP))
	}
	if config.XFrameOptions != "" {
		h.Set("X-Frame-Options", config.XFrameOptions)
	}
	if config.XContentTypeNoSniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if config.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", config.ReferrerPolicy)
	}
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
}

func buildCSPHeader(csp *CSPConfig) string {
	var directives []string
	add := func(name string, values []string) {
		if len(values) > 0 {
			directives = append(directives, fmt.Sprintf("%s %s", name, strings.Join(values, " ")))
		}
	}
	add("default-src", csp.DefaultSrc)
	add("script-src", csp.ScriptSrc)
	add("style-src", csp.StyleSrc)
	add("img-src", csp.ImgSrc)
	add("media-src", csp.MediaSrc)
	add("frame-src", csp.FrameSrc)
	add("connect-src", csp.ConnectSrc)
	add("object-src", csp.ObjectSrc)
	add("frame-ancestors", csp.FrameAncestors)
	return strings.Join(directives, "; ")
}

// requestOrigin is the Origin header, or the origin of the Referer when the
// browser left Origin out.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}

// isValidOrigin accepts requests from the server's own host or an allowed
// origin. Requests carrying neither Origin nor Referer come from non-browser
// clients and are accepted.
func isValidOrigin(r *http.Request, allowedOrigins []string) bool {
	origin := requestOrigin(r)
	if origin == "" {
		return true
	}
	return originAllowed(origin, r.Host, allowedOrigins)
}

func originAllowed(origin, host string, allowedOrigins []string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// corsMiddleware answers preflights and sets CORS headers for allowed
// origins.
func corsMiddleware(sc *SecurityConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin != "" && originAllowed(origin, r.Host, sc.AllowedOrigins):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		case sc.AllowAnyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request with its status and duration.
func loggingMiddleware(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug(r.Context(), "HTTP request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status,
			"duration", time.Since(start), "ip", getClientIP(r))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrade reach the
// underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, _ := strings.Cut(xff, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
