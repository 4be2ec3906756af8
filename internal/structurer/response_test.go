package structurer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medparse/internal/domain"
	"medparse/internal/structurer"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"总金额": 80.00}`, `{"总金额": 80.00}`},
		{"json fence", "```json\n{\"总金额\": 80.00}\n```", `{"总金额": 80.00}`},
		{"bare fence", "```\n{\"总金额\": 80.00}\n```", `{"总金额": 80.00}`},
		{"fence with surrounding whitespace", "  ```json\n{\"总金额\": 80.00}\n```  \n", `{"总金额": 80.00}`},
		{"fence without trailing newline", "```json\n{\"总金额\": 80.00}```", `{"总金额": 80.00}`},
		{"inner backticks untouched", "{\"收款单位\": \"```医院```\"}", "{\"收款单位\": \"```医院```\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, structurer.StripCodeFences(tt.in))
		})
	}
}

// All fencing variants of the same object must normalize to the same
// parsed invoice.
func TestParseInvoiceReply_FenceVariantsEquivalent(t *testing.T) {
	variants := []string{
		`{"总金额": 80.00, "收款单位": "XX医院"}`,
		"```json\n{\"总金额\": 80.00, \"收款单位\": \"XX医院\"}\n```",
		"```\n{\"总金额\": 80.00, \"收款单位\": \"XX医院\"}\n```",
	}

	var first *domain.Invoice
	for i, raw := range variants {
		inv, err := structurer.ParseInvoiceReply(raw)
		require.NoError(t, err, "variant %d", i)
		if first == nil {
			first = inv
			continue
		}
		assert.Equal(t, first, inv, "variant %d", i)
	}

	require.NotNil(t, first.TotalAmount)
	assert.Equal(t, 80.0, *first.TotalAmount)
}

func TestParseInvoiceReply_InvalidJSON(t *testing.T) {
	raw := "抱歉，我无法提取这份票据。"
	_, err := structurer.ParseInvoiceReply(raw)

	var parseErr *domain.ResponseParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, raw, parseErr.Raw)
}

func TestParseInvoiceReply_NonObject(t *testing.T) {
	_, err := structurer.ParseInvoiceReply(`[1, 2, 3]`)

	var parseErr *domain.ResponseParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestParseInvoiceReply_TypeMismatch(t *testing.T) {
	_, err := structurer.ParseInvoiceReply(`{"总金额": "八十元"}`)

	var schemaErr *domain.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "total_amount", schemaErr.Field)
}

func TestParseInvoiceReply_UnknownFieldNotFatal(t *testing.T) {
	inv, err := structurer.ParseInvoiceReply(`{"总金额度": 80}`)
	require.NoError(t, err)
	assert.Nil(t, inv.TotalAmount)
}

func TestBuildInvoicePrompt_EmbedsText(t *testing.T) {
	prompt := structurer.BuildInvoicePrompt("总金额: 80.00")
	assert.Contains(t, prompt, "总金额: 80.00")
	assert.Contains(t, prompt, "YYYY-MM-DD")
	assert.Contains(t, prompt, "null")
}
