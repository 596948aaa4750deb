package store

import (
	"encoding/json"
	"strings"

	"github.com/ordersuite/orderflow/internal/models"
)

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for file paths.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// upsertProduct replaces the product matching by name, or appends it.
func upsertProduct(products []models.ProductSpec, p models.ProductSpec) []models.ProductSpec {
	for i, existing := range products {
		if existing.Name == p.Name {
			products[i] = p
			return products
		}
	}
	return append(products, p)
}

// nilIfEmpty returns nil for empty strings, for nullable columns.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// marshalField JSON-encodes a value for a text/jsonb column.
func marshalField(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalInto decodes a JSON column into dst, tolerating empty columns.
func unmarshalInto(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
