package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Kyz7/backoffice/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// New builds the application logger. Development defaults to debug/text,
// everything else to info/json; LOG_LEVEL and LOG_FORMAT override both.
func New(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, format := "info", "json"
	if cfg.IsDevelopment() {
		level, format = "debug", "text"
	}
	if cfg.LogLevel != "" {
		level = strings.ToLower(cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		format = strings.ToLower(cfg.LogFormat)
	}

	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.Warnf("unknown LOG_LEVEL %q, falling back to info", level)
	}

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	return log
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// UserIDKey is the fiber Locals key the access middleware reads the
// authenticated user id from.
const UserIDKey = "log_user_id"

// Middleware writes one access-log entry per request.
func Middleware(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// The error handler runs here so the logged status is the one sent.
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()

		fields := logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			fields["request_id"] = rid
		}
		if uid, ok := c.Locals(UserIDKey).(uint); ok && uid != 0 {
			fields["user_id"] = uid
		}

		entry := log.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
		return nil
	}
}
