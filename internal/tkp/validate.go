package tkp

import (
	"errors"
	"math"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/tkp-service/internal/pricing"
	"github.com/noah-isme/tkp-service/internal/state"
)

// QuestionPrefix opens every clarifying question sent back to the caller.
const QuestionPrefix = "Пожалуйста, уточните данные: "

const (
	msgRequired     = "field required"
	msgNotString    = "str type expected"
	msgNotNumber    = "value is not a valid float"
	msgNotBool      = "value could not be parsed to a boolean"
	msgNotDict      = "value is not a valid dict"
	msgNotList      = "value is not a valid list"
	msgBadEmail     = "value is not a valid email address"
	msgBadCurrency  = "unexpected value; permitted: 'RUB', 'USD', 'EUR'"
	msgDiscountLow  = "ensure this value is greater than or equal to 0"
	msgDiscountHigh = "ensure this value is less than or equal to 100"
	msgEmptyScope   = "ensure this value has at least 1 items"
	msgTotalRange   = "total is out of range"
)

var validate = validator.New()

// FieldError describes one missing or invalid field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FieldErrors is the ordered list of problems found in a state.
type FieldErrors []FieldError

// String joins the entries as "path: message" separated by "; ".
func (e FieldErrors) String() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Path + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Error implements the error interface.
func (e FieldErrors) Error() string { return e.String() }

// Question formats the errors as the clarifying question returned by /collect.
func (e FieldErrors) Question() string { return QuestionPrefix + e.String() }

// Paths lists the dotted paths in order.
func (e FieldErrors) Paths() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Path
	}
	return out
}

// Validate checks an accumulated state against the proposal schema. On success it
// returns the typed record and a nil error list.
func Validate(m state.Map) (Data, FieldErrors) {
	c := &checker{}
	var data Data

	if sec, ok := c.section(m, "", "client", true); ok {
		data.Client = c.client(sec, "client")
	}
	if sec, ok := c.section(m, "", "project", true); ok {
		data.Project = c.project(sec, "project")
	}
	data.Scope = c.scope(m, "scope")
	if _, reported := c.reported("scope"); !reported && len(data.Scope) > 0 {
		if !finite(pricing.RawTotal(data.Lines())) {
			c.fail("scope", msgTotalRange)
		}
	}
	if sec, ok := c.section(m, "", "commercial", true); ok {
		data.Commercial = c.commercial(sec, "commercial")
	}
	if sec, ok := c.section(m, "", "legal", true); ok {
		data.Legal = c.legal(sec, "legal")
	}
	if sec, ok := c.section(m, "", "signatures", false); ok {
		data.Signatures = c.signatures(sec, "signatures")
	}

	if len(c.errs) > 0 {
		return Data{}, c.errs
	}
	return data, nil
}

type checker struct {
	errs FieldErrors
}

func (c *checker) fail(path, message string) {
	c.errs = append(c.errs, FieldError{Path: path, Message: message})
}

func (c *checker) client(m state.Map, path string) Client {
	out := Client{
		Name:        c.requiredString(m, path, "name"),
		INN:         c.optionalString(m, path, "inn"),
		KPP:         c.optionalString(m, path, "kpp"),
		ContactName: c.requiredString(m, path, "contact_name"),
		Email:       c.requiredString(m, path, "email"),
		Phone:       c.optionalString(m, path, "phone"),
	}
	if out.Email != "" {
		if err := validate.Var(out.Email, "email"); err != nil {
			c.fail(join(path, "email"), msgBadEmail)
		}
	}
	return out
}

func (c *checker) project(m state.Map, path string) Project {
	return Project{
		Title:    c.requiredString(m, path, "title"),
		Summary:  c.requiredString(m, path, "summary"),
		Deadline: c.requiredString(m, path, "deadline"),
	}
}

func (c *checker) scope(root state.Map, path string) []ScopeItem {
	v, present := root[path]
	if !present || v.IsNull() {
		c.fail(path, msgRequired)
		return nil
	}
	items, ok := v.AsList()
	if !ok {
		c.fail(path, msgNotList)
		return nil
	}
	if len(items) == 0 {
		c.fail(path, msgEmptyScope)
		return nil
	}
	out := make([]ScopeItem, 0, len(items))
	for i, raw := range items {
		itemPath := join(path, strconv.Itoa(i))
		m, ok := raw.AsMap()
		if !ok {
			c.fail(itemPath, msgNotDict)
			continue
		}
		out = append(out, ScopeItem{
			Item:  c.requiredString(m, itemPath, "item"),
			Desc:  c.optionalString(m, itemPath, "desc"),
			Qty:   c.requiredNumber(m, itemPath, "qty"),
			Unit:  c.requiredString(m, itemPath, "unit"),
			Price: c.requiredNumber(m, itemPath, "price"),
		})
	}
	return out
}

func (c *checker) commercial(m state.Map, path string) Commercial {
	out := Commercial{
		Currency:     c.requiredString(m, path, "currency"),
		VATIncluded:  c.requiredBool(m, path, "vat_included"),
		PaymentTerms: c.requiredString(m, path, "payment_terms"),
	}
	if out.Currency != "" {
		if err := validate.Var(out.Currency, "oneof=RUB USD EUR"); err != nil {
			c.fail(join(path, "currency"), msgBadCurrency)
		}
	}

	if _, present := m["discount_percent"]; !present {
		zero := 0.0
		out.DiscountPercent = &zero
	} else {
		out.DiscountPercent = c.optionalNumber(m, path, "discount_percent")
	}
	if out.DiscountPercent != nil {
		if err := validate.Var(*out.DiscountPercent, "gte=0,lte=100"); err != nil {
			var verrs validator.ValidationErrors
			msg := msgDiscountHigh
			if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "gte" {
				msg = msgDiscountLow
			}
			c.fail(join(path, "discount_percent"), msg)
		}
	}
	return out
}

func (c *checker) legal(m state.Map, path string) Legal {
	return Legal{
		ValidUntil: c.requiredString(m, path, "valid_until"),
		Warranty:   c.requiredString(m, path, "warranty"),
		Liability:  c.optionalString(m, path, "liability"),
	}
}

func (c *checker) signatures(m state.Map, path string) Signatures {
	return Signatures{
		SupplierSign: c.optionalString(m, path, "supplier_sign"),
		ClientSign:   c.optionalString(m, path, "client_sign"),
	}
}

// section resolves a nested map. Missing and null sections fail only when required.
func (c *checker) section(m state.Map, prefix, key string, required bool) (state.Map, bool) {
	path := join(prefix, key)
	v, present := m[key]
	if !present || v.IsNull() {
		if required {
			c.fail(path, msgRequired)
		}
		return nil, false
	}
	nested, ok := v.AsMap()
	if !ok {
		c.fail(path, msgNotDict)
		return nil, false
	}
	return nested, true
}

func (c *checker) requiredString(m state.Map, prefix, key string) string {
	s := c.optionalString(m, prefix, key)
	if s == nil {
		if _, reported := c.reported(join(prefix, key)); !reported {
			c.fail(join(prefix, key), msgRequired)
		}
		return ""
	}
	if strings.TrimSpace(*s) == "" {
		c.fail(join(prefix, key), msgRequired)
		return ""
	}
	return *s
}

func (c *checker) optionalString(m state.Map, prefix, key string) *string {
	v, present := m[key]
	if !present || v.IsNull() {
		return nil
	}
	if s, ok := v.AsString(); ok {
		return &s
	}
	if f, ok := v.AsNumber(); ok {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		return &s
	}
	c.fail(join(prefix, key), msgNotString)
	return nil
}

func (c *checker) requiredNumber(m state.Map, prefix, key string) float64 {
	v, present := m[key]
	if !present || v.IsNull() {
		c.fail(join(prefix, key), msgRequired)
		return 0
	}
	f, ok := toNumber(v)
	if !ok {
		c.fail(join(prefix, key), msgNotNumber)
		return 0
	}
	return f
}

func (c *checker) optionalNumber(m state.Map, prefix, key string) *float64 {
	v, present := m[key]
	if !present || v.IsNull() {
		return nil
	}
	f, ok := toNumber(v)
	if !ok {
		c.fail(join(prefix, key), msgNotNumber)
		return nil
	}
	return &f
}

func (c *checker) requiredBool(m state.Map, prefix, key string) bool {
	v, present := m[key]
	if !present || v.IsNull() {
		c.fail(join(prefix, key), msgRequired)
		return false
	}
	b, ok := toBool(v)
	if !ok {
		c.fail(join(prefix, key), msgNotBool)
		return false
	}
	return b
}

func (c *checker) reported(path string) (FieldError, bool) {
	for _, fe := range c.errs {
		if fe.Path == path {
			return fe, true
		}
	}
	return FieldError{}, false
}

func toNumber(v state.Value) (float64, bool) {
	if f, ok := v.AsNumber(); ok {
		return f, finite(f)
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, finite(f)
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toBool(v state.Value) (bool, bool) {
	if b, ok := v.AsBool(); ok {
		return b, true
	}
	if f, ok := v.AsNumber(); ok {
		switch f {
		case 0:
			return false, true
		case 1:
			return true, true
		}
		return false, false
	}
	if s, ok := v.AsString(); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "on", "да":
			return true, true
		case "0", "false", "no", "off", "нет":
			return false, true
		}
	}
	return false, false
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
