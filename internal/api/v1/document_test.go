package apiv1

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectDocument(t *testing.T) string {
	t.Helper()
	return filepath.Join("..", "..", "..", DocumentPath)
}

func TestDocumentIsValid(t *testing.T) {
	doc, err := LoadDocument(context.Background(), projectDocument(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /api/v1/admin/events/:id/audit",
		"GET /api/v1/creators/:id/summary",
		"GET /api/v1/creators/:id/transactions",
		"GET /api/v1/entitlements/:id",
		"POST /api/v1/admin/creators/:id/recompute",
		"POST /api/v1/admin/creators/:id/statements",
		"POST /api/v1/checkout",
		"POST /api/v1/checkout/verify",
		"POST /webhooks/stripe",
	}, Operations(doc))
}

func TestLoadDocumentRejectsInvalidSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.3\ninfo:\n  title: broken\npaths: {}\n"), 0o600))

	_, err := LoadDocument(context.Background(), path)
	assert.Error(t, err)

	_, err = LoadDocument(context.Background(), filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestOperationsOfNilDocument(t *testing.T) {
	assert.Empty(t, Operations(nil))
}
