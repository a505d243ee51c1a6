package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasteos.dev/common"
)

func callWithWorkspace(t *testing.T, header string) (error, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderWorkspaceID, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured string
	handler := RequireWorkspace()(func(c echo.Context) error {
		captured = WorkspaceID(c)
		return c.NoContent(http.StatusOK)
	})
	return handler(c), captured
}

func TestRequireWorkspace(t *testing.T) {
	err, ws := callWithWorkspace(t, "kitchen-1")
	require.NoError(t, err)
	assert.Equal(t, "kitchen-1", ws)
}

func TestRequireWorkspaceMissing(t *testing.T) {
	err, _ := callWithWorkspace(t, "")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))
}

func TestRequireWorkspaceInvalid(t *testing.T) {
	for _, header := range []string{"UPPER", "has space", "-leading", "a/b"} {
		err, _ := callWithWorkspace(t, header)
		assert.Error(t, err, header)
		assert.True(t, common.IsKind(err, common.KindValidation), header)
	}
}
