package extract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tkp-service/internal/extract"
)

func schemaLoader(t *testing.T) extract.SchemaLoader {
	t.Helper()
	path := filepath.Join("..", "..", "schema", "tkp_schema.json")
	_, err := os.Stat(path)
	require.NoError(t, err)
	return extract.SchemaLoader{Path: path}
}
