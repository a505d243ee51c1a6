// Package api provides request-scoping middleware for the TasteOS HTTP
// surface. Authentication and tenant resolution happen upstream; this
// package only consumes the resolved workspace identity header.
package api

import (
	"regexp"

	"github.com/labstack/echo/v4"

	"tasteos.dev/common"
)

// workspaceContextKey is the echo context key holding the workspace id.
const workspaceContextKey = "workspace_id"

// HeaderWorkspaceID carries the resolved tenant identity (UUID or slug).
const HeaderWorkspaceID = "X-Workspace-Id"

// workspacePattern accepts UUIDs and slugs.
var workspacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// RequireWorkspace rejects requests that lack a valid X-Workspace-Id
// header and stores the workspace id on the request context.
func RequireWorkspace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ws := c.Request().Header.Get(HeaderWorkspaceID)
			if ws == "" {
				return common.Validationf("missing %s header", HeaderWorkspaceID)
			}
			if !workspacePattern.MatchString(ws) {
				return common.Validationf("invalid %s header", HeaderWorkspaceID)
			}
			c.Set(workspaceContextKey, ws)
			return next(c)
		}
	}
}

// WorkspaceID returns the workspace id resolved by RequireWorkspace, or
// the empty string when the middleware did not run.
func WorkspaceID(c echo.Context) string {
	ws, _ := c.Get(workspaceContextKey).(string)
	return ws
}
