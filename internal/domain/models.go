package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Invoice is the structured record extracted from one medical invoice.
// Every field is independently optional; nil means "not found on the
// invoice", never zero.
//
// The structuring model is instructed to emit the Chinese alias names, so
// JSON decoding accepts the alias first and the canonical English name as
// a fallback. Encoding always emits the alias names (the front-end
// contract), with currency amounts fixed to two decimals.
type Invoice struct {
	TotalAmount            *float64 // 总金额
	Payee                  *string  // 收款单位
	VisitDate              *string  // 就诊日期 (YYYY-MM-DD)
	InsurancePayment       *float64 // 医保基金支付金额
	PersonalPayment        *float64 // 个人支付
	PersonalAccountPayment *float64 // 个人账户支付
	PersonalCashPayment    *float64 // 个人现金支付
}

// invoiceField describes one schema field: canonical name, Chinese alias,
// and whether the JSON value must be a number or a string.
type invoiceField struct {
	Name    string
	Alias   string
	Numeric bool
}

var invoiceFields = []invoiceField{
	{Name: "total_amount", Alias: "总金额", Numeric: true},
	{Name: "payee", Alias: "收款单位", Numeric: false},
	{Name: "visit_date", Alias: "就诊日期", Numeric: false},
	{Name: "insurance_payment", Alias: "医保基金支付金额", Numeric: true},
	{Name: "personal_payment", Alias: "个人支付", Numeric: true},
	{Name: "personal_account_payment", Alias: "个人账户支付", Numeric: true},
	{Name: "personal_cash_payment", Alias: "个人现金支付", Numeric: true},
}

func (inv *Invoice) numericSlot(name string) **float64 {
	switch name {
	case "total_amount":
		return &inv.TotalAmount
	case "insurance_payment":
		return &inv.InsurancePayment
	case "personal_payment":
		return &inv.PersonalPayment
	case "personal_account_payment":
		return &inv.PersonalAccountPayment
	case "personal_cash_payment":
		return &inv.PersonalCashPayment
	}
	return nil
}

func (inv *Invoice) stringSlot(name string) **string {
	switch name {
	case "payee":
		return &inv.Payee
	case "visit_date":
		return &inv.VisitDate
	}
	return nil
}

// UnmarshalJSON decodes a JSON object into the invoice schema. Field
// lookup is alias-first, canonical-name fallback. Unknown keys are
// ignored, missing keys and explicit nulls leave the field absent, and a
// type mismatch returns a *SchemaValidationError rather than coercing.
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, f := range invoiceFields {
		val, ok := raw[f.Alias]
		if !ok {
			if val, ok = raw[f.Name]; !ok {
				continue
			}
		}
		if string(bytes.TrimSpace(val)) == "null" {
			continue
		}

		if f.Numeric {
			var n float64
			if err := json.Unmarshal(val, &n); err != nil {
				return &SchemaValidationError{Field: f.Name, Alias: f.Alias, Value: string(val)}
			}
			*inv.numericSlot(f.Name) = &n
			continue
		}

		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return &SchemaValidationError{Field: f.Name, Alias: f.Alias, Value: string(val)}
		}
		*inv.stringSlot(f.Name) = &s
	}

	return nil
}

// MarshalJSON emits the invoice with Chinese alias keys in schema order.
// Absent fields are emitted as explicit nulls and currency amounts are
// fixed to two decimals, matching what the structuring model is told to
// produce, so a marshal/unmarshal round trip is lossless.
func (inv Invoice) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range invoiceFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Alias)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if f.Numeric {
			if v := *inv.numericSlot(f.Name); v != nil {
				buf.WriteString(strconv.FormatFloat(*v, 'f', 2, 64))
			} else {
				buf.WriteString("null")
			}
			continue
		}

		if v := *inv.stringSlot(f.Name); v != nil {
			val, err := json.Marshal(*v)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
