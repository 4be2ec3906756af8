package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medparse/internal/domain"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestInvoice_MarshalUsesAliases(t *testing.T) {
	inv := domain.Invoice{
		TotalAmount: f64(80),
		Payee:       str("北京协和医院"),
		VisitDate:   str("2025-06-05"),
	}

	data, err := json.Marshal(inv)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"总金额":80.00`)
	assert.Contains(t, s, `"收款单位":"北京协和医院"`)
	assert.Contains(t, s, `"就诊日期":"2025-06-05"`)
	// absent fields are explicit nulls, not omitted
	assert.Contains(t, s, `"医保基金支付金额":null`)
	// canonical names never leak into the wire format
	assert.NotContains(t, s, "total_amount")
}

func TestInvoice_AliasRoundTrip(t *testing.T) {
	orig := domain.Invoice{
		TotalAmount:            f64(124.56),
		Payee:                  str("XX医院"),
		VisitDate:              str("2024-01-15"),
		InsurancePayment:       f64(80),
		PersonalPayment:        f64(44.56),
		PersonalAccountPayment: f64(30),
		PersonalCashPayment:    f64(14.56),
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var parsed domain.Invoice
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, orig, parsed)
}

func TestInvoice_UnmarshalAliasWinsOverCanonical(t *testing.T) {
	var inv domain.Invoice
	require.NoError(t, json.Unmarshal([]byte(`{"总金额": 80.00, "total_amount": 99.00}`), &inv))

	require.NotNil(t, inv.TotalAmount)
	assert.Equal(t, 80.0, *inv.TotalAmount)
}

func TestInvoice_UnmarshalCanonicalFallback(t *testing.T) {
	var inv domain.Invoice
	require.NoError(t, json.Unmarshal([]byte(`{"total_amount": 80.00, "payee": "XX医院"}`), &inv))

	require.NotNil(t, inv.TotalAmount)
	assert.Equal(t, 80.0, *inv.TotalAmount)
	require.NotNil(t, inv.Payee)
	assert.Equal(t, "XX医院", *inv.Payee)
}

func TestInvoice_UnmarshalIgnoresUnknownKeys(t *testing.T) {
	// "总金额度" is not a recognized alias; the amount stays absent and
	// nothing fails.
	var inv domain.Invoice
	require.NoError(t, json.Unmarshal([]byte(`{"总金额度": 80}`), &inv))
	assert.Nil(t, inv.TotalAmount)
}

func TestInvoice_UnmarshalNullMeansAbsent(t *testing.T) {
	var inv domain.Invoice
	require.NoError(t, json.Unmarshal([]byte(`{"总金额": null, "收款单位": null}`), &inv))
	assert.Nil(t, inv.TotalAmount)
	assert.Nil(t, inv.Payee)
}

func TestInvoice_UnmarshalTypeMismatch(t *testing.T) {
	var inv domain.Invoice
	err := json.Unmarshal([]byte(`{"总金额": "eighty"}`), &inv)

	var schemaErr *domain.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "total_amount", schemaErr.Field)
	assert.Equal(t, "总金额", schemaErr.Alias)
}

func TestInvoice_UnmarshalStringFieldRejectsNumber(t *testing.T) {
	var inv domain.Invoice
	err := json.Unmarshal([]byte(`{"收款单位": 42}`), &inv)

	var schemaErr *domain.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "payee", schemaErr.Field)
}

func TestInvoice_MarshalEmpty(t *testing.T) {
	data, err := json.Marshal(domain.Invoice{})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m, 7)
	for k, v := range m {
		assert.Nil(t, v, "field %s should be null", k)
	}
}
