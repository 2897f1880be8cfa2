package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringDefaults(t *testing.T) {
	assert.Equal(t, "dev (commit unknown, built unknown)", String())
}

func TestStringInjected(t *testing.T) {
	oldV, oldC, oldB := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldV, oldC, oldB })

	Version, Commit, BuildTime = "v1.4.0", "abcdef1", "2026-02-19T12:34:56Z"

	assert.Equal(t, "v1.4.0 (commit abcdef1, built 2026-02-19T12:34:56Z)", String())
}
