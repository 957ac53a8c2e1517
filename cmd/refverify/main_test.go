// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvExportsValues(t *testing.T) {
	const key = "REFVERIFY_DOTENV_TEST_MAILTO"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=me@example.org\n"), 0o644))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "me@example.org", os.Getenv(key))
}

func TestLoadDotEnvMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REFVERIFY_MAILTO=\"unterminated\n"), 0o644))

	assert.Error(t, loadDotEnv(path))
}
