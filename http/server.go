// Package http provides the Echo server setup shared by the service:
// standard middleware, the kinded error handler and graceful shutdown.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"tasteos.dev/common"
)

// ServerConfig contains configuration for creating an Echo server.
type ServerConfig struct {
	Host            string
	Port            int
	Debug           bool
	BodyLimit       string // e.g. "1M"
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64 // requests per second, 0 disables
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		Debug:           false,
		BodyLimit:       "1M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0, // SSE streams must outlive any write timeout
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimit:       0,
	}
}

// NewEchoServer creates an Echo server with the standard middleware
// stack and the kinded error handler.
func NewEchoServer(config ServerConfig) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.Debug = config.Debug
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	if config.BodyLimit != "" {
		e.Use(middleware.BodyLimit(config.BodyLimit))
	}

	if len(config.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: config.AllowedOrigins,
			AllowMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
				http.MethodPatch,
				http.MethodOptions,
			},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				"X-Workspace-Id",
				"Idempotency-Key",
			},
		}))
	}

	if config.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(config.RateLimit),
		)))
	}

	return e
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorHandler maps kinded errors to their stable status codes. Echo's
// own HTTP errors (404 on unknown routes, body limit) pass through.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var status int
	var kind, message string

	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		kind = kindForStatus(status)
		message = fmt.Sprintf("%v", he.Message)
	} else {
		k := common.KindOf(err)
		status = common.HTTPStatus(k)
		kind = string(k)
		var kinded *common.Error
		switch {
		case k == common.KindFatal:
			common.Logger.WithError(err).Error("internal error")
			message = "internal error"
		case errors.As(err, &kinded):
			message = kinded.Message
		default:
			message = err.Error()
		}
	}

	if writeErr := c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Kind:    kind,
		Message: message,
	}); writeErr != nil {
		common.Logger.WithError(writeErr).Error("failed to write error response")
	}
}

func kindForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return string(common.KindNotFound)
	case status >= 400 && status < 500:
		return string(common.KindValidation)
	default:
		return string(common.KindFatal)
	}
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// HealthCheckHandler returns a standard health check handler.
func HealthCheckHandler(serviceName, version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		})
	}
}

// StartServer starts the server with the configured timeouts.
func StartServer(e *echo.Echo, config ServerConfig) error {
	s := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	common.Logger.WithField("addr", s.Addr).Info("starting server")
	return e.StartServer(s)
}

// GracefulShutdown drains in-flight requests before stopping.
func GracefulShutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	common.Logger.Info("shutting down server")
	if err := e.Shutdown(ctx); err != nil {
		return common.Wrap(common.KindTransient, err, "server shutdown failed")
	}
	return nil
}
