package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	auth "github.com/goliatone/go-auth-starter"
)

// RequestLogger logs one line per request. Errors are rendered through the
// app error handler first so the logged status is the one sent.
func RequestLogger(logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		args := []any{
			"method", c.Method(),
			"path", c.OriginalURL(),
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.IP(),
			"user_agent", c.Get(fiber.HeaderUserAgent),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request", args...)
		} else {
			logger.Info("request", args...)
		}
		return nil
	}
}

func helmetConfig(clientURL string) helmet.Config {
	connectSrc := "'self'"
	if clientURL != "" {
		connectSrc += " " + clientURL
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"font-src 'self' https://fonts.gstatic.com",
		"img-src 'self' data: https:",
		"script-src 'self'",
		"connect-src " + connectSrc,
		"frame-src 'none'",
		"object-src 'none'",
		"media-src 'self'",
		"manifest-src 'self'",
	}, "; ")

	return helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		HSTSPreloadEnabled:        true,
		ContentSecurityPolicy:     csp,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}
}

func corsConfig(clientURL string) cors.Config {
	cfg := cors.Config{
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,X-Requested-With",
	}
	if clientURL == "" {
		cfg.AllowOrigins = "*"
		return cfg
	}
	cfg.AllowOrigins = clientURL
	cfg.AllowCredentials = true
	return cfg
}
