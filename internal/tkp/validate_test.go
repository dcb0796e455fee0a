package tkp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tkp-service/internal/state"
	"github.com/noah-isme/tkp-service/internal/tkp"
)

const completeState = `{
  "client": {"name": "ООО Ромашка", "inn": 7701234567, "contact_name": "Иван Петров", "email": "ivan@romashka.ru"},
  "project": {"title": "Внедрение CRM", "summary": "Настройка и обучение", "deadline": "2026-12-01"},
  "scope": [
    {"item": "Работа 1", "qty": 2, "unit": "шт", "price": 1000},
    {"item": "Работа 2", "desc": "Обучение", "qty": "1", "unit": "шт", "price": 500}
  ],
  "commercial": {"currency": "RUB", "vat_included": true, "payment_terms": "50% предоплата"},
  "legal": {"valid_until": "2026-11-30", "warranty": "12 месяцев"}
}`

func decode(t *testing.T, raw string) state.Map {
	t.Helper()
	m, err := state.Decode([]byte(raw))
	require.NoError(t, err)
	return m
}

func TestValidateEmptyStateNamesEverySection(t *testing.T) {
	_, errs := tkp.Validate(state.Map{})
	require.Equal(t, []string{"client", "project", "scope", "commercial", "legal"}, errs.Paths())
	require.Equal(t,
		"Пожалуйста, уточните данные: client: field required; project: field required; scope: field required; commercial: field required; legal: field required",
		errs.Question())
}

func TestValidateMissingSection(t *testing.T) {
	m := decode(t, completeState)
	delete(m, "legal")
	_, errs := tkp.Validate(m)
	require.NotEmpty(t, errs)
	require.Contains(t, errs.Paths(), "legal")
}

func TestValidateCompleteState(t *testing.T) {
	data, errs := tkp.Validate(decode(t, completeState))
	require.Nil(t, errs)

	require.Equal(t, "ООО Ромашка", data.Client.Name)
	require.NotNil(t, data.Client.INN)
	require.Equal(t, "7701234567", *data.Client.INN)
	require.Len(t, data.Scope, 2)
	require.Equal(t, 1.0, data.Scope[1].Qty)
	require.NotNil(t, data.Scope[1].Desc)
	require.True(t, data.Commercial.VATIncluded)
	require.NotNil(t, data.Commercial.DiscountPercent)
	require.Equal(t, 0.0, *data.Commercial.DiscountPercent)
	require.Nil(t, data.Signatures.SupplierSign)

	summary := data.Summary()
	require.Equal(t, 2500.0, summary.TotalBeforeDiscount)
	require.Equal(t, 2500.0, summary.GrandTotal)
	require.Equal(t, "RUB", summary.Currency)
}

func TestValidateFieldLevelErrors(t *testing.T) {
	m := decode(t, completeState)
	state.Merge(m, decode(t, `{
	  "client": {"email": "not-an-email", "contact_name": "  "},
	  "scope": [{"item": "x", "qty": "many", "unit": "шт"}],
	  "commercial": {"currency": "GBP", "vat_included": "maybe", "discount_percent": 120}
	}`))

	_, errs := tkp.Validate(m)
	require.Equal(t, tkp.FieldErrors{
		{Path: "client.contact_name", Message: "field required"},
		{Path: "client.email", Message: "value is not a valid email address"},
		{Path: "scope.0.qty", Message: "value is not a valid float"},
		{Path: "scope.0.price", Message: "field required"},
		{Path: "commercial.vat_included", Message: "value could not be parsed to a boolean"},
		{Path: "commercial.currency", Message: "unexpected value; permitted: 'RUB', 'USD', 'EUR'"},
		{Path: "commercial.discount_percent", Message: "ensure this value is less than or equal to 100"},
	}, errs)
}

func TestValidateNegativeDiscount(t *testing.T) {
	m := decode(t, completeState)
	state.Merge(m, decode(t, `{"commercial":{"discount_percent":-1}}`))
	_, errs := tkp.Validate(m)
	require.Equal(t, tkp.FieldErrors{{Path: "commercial.discount_percent", Message: "ensure this value is greater than or equal to 0"}}, errs)
}

func TestValidateNullDiscountIsAllowed(t *testing.T) {
	m := decode(t, completeState)
	state.Merge(m, decode(t, `{"commercial":{"discount_percent":null}}`))
	data, errs := tkp.Validate(m)
	require.Nil(t, errs)
	require.Nil(t, data.Commercial.DiscountPercent)
	require.Equal(t, 2500.0, data.Summary().GrandTotal)
}

func TestValidateEmptyScopeFails(t *testing.T) {
	m := decode(t, completeState)
	m["scope"] = state.List()
	_, errs := tkp.Validate(m)
	require.Equal(t, tkp.FieldErrors{{Path: "scope", Message: "ensure this value has at least 1 items"}}, errs)
}

func TestValidateBlankRequiredStrings(t *testing.T) {
	m := decode(t, completeState)
	client, _ := m["client"].AsMap()
	client["name"] = state.String("   ")
	client["contact_name"] = state.String("")
	_, errs := tkp.Validate(m)
	require.Equal(t, []string{"client.name", "client.contact_name"}, errs.Paths())
}

func TestValidateRejectsOverflowingTotal(t *testing.T) {
	m := decode(t, completeState)
	m["scope"] = state.List(state.Object(state.Map{
		"item":  state.String("Работа"),
		"qty":   state.Number(1e300),
		"unit":  state.String("шт"),
		"price": state.Number(1e300),
	}))
	_, errs := tkp.Validate(m)
	require.Equal(t, tkp.FieldErrors{{Path: "scope", Message: "total is out of range"}}, errs)
}

func TestValidateWrongShapes(t *testing.T) {
	m := decode(t, completeState)
	m["client"] = state.String("ООО Ромашка")
	m["scope"] = state.Object(state.Map{})
	m["signatures"] = state.Number(1)
	_, errs := tkp.Validate(m)
	require.Equal(t, tkp.FieldErrors{
		{Path: "client", Message: "value is not a valid dict"},
		{Path: "scope", Message: "value is not a valid list"},
		{Path: "signatures", Message: "value is not a valid dict"},
	}, errs)
}

func TestDataStateRoundTrip(t *testing.T) {
	data, errs := tkp.Validate(decode(t, completeState))
	require.Nil(t, errs)

	m, err := data.State()
	require.NoError(t, err)

	again, errs := tkp.Validate(m)
	require.Nil(t, errs)
	require.Equal(t, data, again)

	sig, ok := state.Lookup(m, "signatures")
	require.True(t, ok)
	require.Equal(t, state.KindMap, sig.Kind())
}
