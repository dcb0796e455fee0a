package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tkp-service/internal/config"
)

const sample = `{
  "client": {"name": "ООО Ромашка", "contact_name": "Иван", "email": "ivan@romashka.ru"},
  "project": {"title": "CRM", "summary": "Внедрение", "deadline": "2026-12-01"},
  "scope": [{"item": "Работа", "qty": 3, "unit": "ч", "price": 100}],
  "commercial": {"currency": "EUR", "vat_included": false, "payment_terms": "100%"},
  "legal": {"valid_until": "2026-11-30", "warranty": "нет"}
}`

func testDefaults(t *testing.T) config.TKP {
	t.Helper()
	cfg, err := config.LoadForTests(map[string]string{
		"TKP_SCHEMA_PATH":    filepath.Join("..", "..", "..", "schema", "tkp_schema.json"),
		"TKP_TEMPLATES_PATH": filepath.Join("..", "..", "..", "templates"),
	})
	require.NoError(t, err)
	return cfg.TKP
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(testDefaults(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderFromStdin(t *testing.T) {
	out, err := run(t, sample, "render", "--totals")
	require.NoError(t, err)
	require.Contains(t, out, "**Итого к оплате: 300,00 EUR**")
	require.Contains(t, out, `"grandTotal": 300`)
}

func TestValidateIncomplete(t *testing.T) {
	out, err := run(t, `{"client":{"name":"x"}}`, "validate")
	require.Error(t, err)
	require.Contains(t, out, "Пожалуйста, уточните данные: client.contact_name: field required")
}

func TestValidateComplete(t *testing.T) {
	out, err := run(t, sample, "validate", "-")
	require.NoError(t, err)
	require.Equal(t, "ok\n", out)
}

func TestTemplateFlagOverridesConfig(t *testing.T) {
	_, err := run(t, sample, "render", "--template", "missing.md.tmpl")
	require.Error(t, err)
}

func TestSchemaStrict(t *testing.T) {
	out, err := run(t, "", "schema", "--strict")
	require.NoError(t, err)
	require.Contains(t, out, `"additionalProperties": false`)
	require.Contains(t, out, `"required": [`)
}
