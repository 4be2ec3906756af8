package structurer

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"medparse/internal/domain"
)

// fenceRe matches a reply wrapped in a single markdown code fence,
// optionally tagged with a language hint, spanning the whole trimmed text.
var fenceRe = regexp.MustCompile("(?s)^```(?:[a-zA-Z]+)?\\s*\n?(.*?)\n?\\s*```$")

// StripCodeFences removes an enclosing markdown code fence if present.
// The model is told not to fence its reply, but it is not contractually
// guaranteed to obey.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// ParseInvoiceReply normalizes a raw model reply into an Invoice: strip
// fences, parse as one JSON object, convert via alias-first remapping.
// Invalid JSON is a *domain.ResponseParseError carrying the raw reply;
// a well-formed object with a wrong-typed field surfaces as the
// *domain.SchemaValidationError from the schema decoder. The reply is
// never repaired or partially accepted.
func ParseInvoiceReply(raw string) (*domain.Invoice, error) {
	cleaned := StripCodeFences(raw)

	var inv domain.Invoice
	if err := json.Unmarshal([]byte(cleaned), &inv); err != nil {
		var schemaErr *domain.SchemaValidationError
		if errors.As(err, &schemaErr) {
			return nil, schemaErr
		}
		return nil, &domain.ResponseParseError{Err: err, Raw: raw}
	}
	return &inv, nil
}
