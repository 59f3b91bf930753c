package configs

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Decimal is a validation threshold. It accepts quoted or bare YAML numbers in
// plain notation only; "1e9" style values are rejected.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("threshold must be a scalar, line %d", value.Line)
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Decimal = decimal.Zero
		return nil
	}
	if strings.ContainsAny(raw, "eE") {
		return fmt.Errorf("invalid decimal %q on line %d: exponent notation is not allowed", raw, value.Line)
	}
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal %q on line %d: %w", raw, value.Line, err)
	}
	d.Decimal = dec
	return nil
}
