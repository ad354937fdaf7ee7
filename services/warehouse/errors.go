package warehouse

import (
	"fmt"
	"strings"
)

// SchemaError reports a raw payload whose shape is not one of the known
// envelope forms. It signals an upstream API contract change and is
// never downgraded to an empty table.
type SchemaError struct {
	Entity string
	// the container keys actually observed in the payload
	Observed []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf(
		"could not find entity %q in payload, observed keys: [%s]",
		e.Entity, strings.Join(e.Observed, ", "),
	)
}

// IntegrityError reports a data-quality violation in a built table:
// a duplicate primary key, a missing required value, or a failed join
// validation. It carries a sample of the offending keys.
type IntegrityError struct {
	Table  string
	Reason string
	Keys   []string
}

const integritySampleSize = 10

func (e *IntegrityError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("%s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf(
		"%s: %s, examples: [%s]",
		e.Table, e.Reason, strings.Join(e.Keys, ", "),
	)
}

func sampleKeys(keys []string) []string {
	if len(keys) > integritySampleSize {
		return keys[:integritySampleSize]
	}
	return keys
}
