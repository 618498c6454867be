// Package middleware contains the Gin middleware shared by the HTTP layer.
//
// This file implements RedactingLogger, the structured access logger. It never
// logs bodies, masks credential headers, and scrubs values that identify a
// person or a bot: document numbers, plates, Telegram bot tokens and the
// webhook secret path segment.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures RedactingLogger.
//
// MaskHeaders adds header names (case-insensitive) whose values are replaced
// with "[REDACTED]", on top of Authorization, Cookie, Set-Cookie,
// X-Admin-Token and X-Telegram-Bot-Api-Secret-Token.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	botTokenRE = regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}\b`)
	// Colombian plates: three letters then three digits, or motorbike ABC12D.
	plateRE = regexp.MustCompile(`(?i)\b[A-Z]{3}[ -]?\d{2}[0-9A-Z]\b`)
	// Identity documents are 5 to 15 digits.
	docNumberRE = regexp.MustCompile(`\b\d{5,15}\b`)
	webhookRE   = regexp.MustCompile(`^(/webhook/)[^/]+`)
)

// redact scrubs s. Bot tokens go first because they embed a digit run.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = botTokenRE.ReplaceAllString(s, "[REDACTED:token]")
	s = plateRE.ReplaceAllString(s, "[REDACTED:plate]")
	s = docNumberRE.ReplaceAllString(s, "[REDACTED:doc]")
	return s
}

// redactPath scrubs an unmatched raw URL path. Matched routes are logged by
// their template (/webhook/:secret) and need no scrubbing.
func redactPath(p string) string {
	return redact(webhookRE.ReplaceAllString(p, "${1}[REDACTED]"))
}

// RedactingLogger attaches a request-scoped logger (request_id, user_id) to
// the Gin context and emits one access log per request: info for 2xx/3xx,
// warn for 4xx, error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":                   {},
		"cookie":                          {},
		"set-cookie":                      {},
		"x-admin-token":                   {},
		"x-telegram-bot-api-secret-token": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = redactPath(c.Request.URL.Path)
		}

		lg := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("user_id", UserID(c)).
			Logger()
		c.Set(loggerKey, &lg)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}
		safeQuery := redact(c.Request.URL.RawQuery)

		c.Next()

		status := c.Writer.Status()
		ev := lg.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = lg.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = lg.Warn()
		}

		ev.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
