package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Module)
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestDependencyUnknownModule(t *testing.T) {
	assert.Empty(t, Dependency("example.com/not/a/dependency"))
}
