// Package flow implements the conversation state machine: the declarative
// state table, input validation, the pure transition engine, and action
// construction.
package flow

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/models"
)

// ValidatorKind selects the structural shape a schema validator accepts.
type ValidatorKind string

const (
	KindText      ValidatorKind = "text"
	KindNumber    ValidatorKind = "number"
	KindEmail     ValidatorKind = "email"
	KindLegalID   ValidatorKind = "legalId"
	KindPhone     ValidatorKind = "phone"
	KindTime      ValidatorKind = "time"
	KindEnum      ValidatorKind = "enum"
	KindDays      ValidatorKind = "days"
	KindObject    ValidatorKind = "object"
	KindArray     ValidatorKind = "array"
	KindOrderLine ValidatorKind = "orderLine"
)

// ValidatorSpec is the schema description of the accepted input shape for a
// state. A nil spec means "accept any non-empty text".
type ValidatorSpec struct {
	Kind ValidatorKind

	// Enum holds the accepted tokens for KindEnum, and the pre-enumerated
	// option ids for KindDays.
	Enum []string

	// Fields names the required scalar fields for KindObject.
	Fields []string

	// Elem describes the element shape for KindArray (nil = strings).
	Elem *ValidatorSpec
}

var (
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	legalIDRegex = regexp.MustCompile(`^\d{9}$`)
	digitsRegex  = regexp.MustCompile(`\D`)
	orderLineRe  = regexp.MustCompile(`^(.+?)\s+(\d+(?:\.\d+)?)$`)
)

// dayOptionSets maps pre-enumerated day option ids to weekday index lists.
var dayOptionSets = map[string][]int{
	"sun_wed":  {0, 3},
	"mon_thu":  {1, 4},
	"tue_fri":  {2, 5},
	"daily":    {0, 1, 2, 3, 4, 5, 6},
	"weekdays": {0, 1, 2, 3, 4},
}

// ValidateSchema runs the schema-based validation path for raw input against
// spec. It is deterministic and never performs I/O.
func ValidateSchema(cfg config.Bot, spec *ValidatorSpec, msg models.InboundMessage) models.ValidationOutcome {
	raw := strings.TrimSpace(msg.Body)
	if raw == "" && msg.MediaURL != "" {
		raw = msg.MediaURL
	}
	if spec == nil {
		if raw == "" {
			return models.Invalid("empty input")
		}
		return models.Valid(raw)
	}
	if raw == "" {
		return models.Invalid("empty input")
	}

	switch spec.Kind {
	case KindText:
		return models.Valid(raw)

	case KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Invalid("not a number")
		}
		if n < 0 {
			return models.Invalid("negative quantity")
		}
		return models.Valid(n)

	case KindEmail:
		if !emailRegex.MatchString(raw) {
			return models.Invalid("invalid email")
		}
		return models.Valid(strings.ToLower(raw))

	case KindLegalID:
		if !legalIDRegex.MatchString(raw) {
			return models.Invalid("legal id must be exactly 9 digits")
		}
		return models.Valid(raw)

	case KindPhone:
		digits := digitsRegex.ReplaceAllString(raw, "")
		if len(digits) < 6 || len(digits) > 15 {
			return models.Invalid("invalid phone number")
		}
		return models.Valid(digits)

	case KindTime:
		if _, err := time.Parse("15:04", raw); err != nil {
			return models.Invalid("time must be HH:MM")
		}
		return models.Valid(raw)

	case KindEnum:
		token := normalizeToken(raw)
		for _, allowed := range spec.Enum {
			if token == allowed {
				return models.Valid(allowed)
			}
		}
		return models.Invalid("not one of the allowed options")

	case KindDays:
		return validateDays(cfg, spec, raw)

	case KindObject:
		return validateObject(spec, raw)

	case KindArray:
		return validateArray(spec, raw)

	case KindOrderLine:
		return validateOrderLine(raw)
	}

	return models.Invalid("unsupported validator kind")
}

func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// validateDays accepts either a pre-enumerated option id or a free-form
// comma-separated list of weekday names or indices, filtered to 0-6. An empty
// result after filtering is a validation failure.
func validateDays(cfg config.Bot, spec *ValidatorSpec, raw string) models.ValidationOutcome {
	token := normalizeToken(raw)
	for _, allowed := range spec.Enum {
		if token == allowed {
			if days, ok := dayOptionSets[token]; ok {
				return models.Valid(toAnySlice(days))
			}
			return models.Valid(token)
		}
	}

	parts := strings.Split(token, ",")
	var days []int
	seen := make(map[int]bool)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, ok := parseWeekday(cfg, part)
		if !ok || idx < 0 || idx > 6 || seen[idx] {
			continue
		}
		seen[idx] = true
		days = append(days, idx)
	}
	if len(days) == 0 {
		return models.Invalid("no valid weekdays found")
	}
	return models.Valid(toAnySlice(days))
}

func parseWeekday(cfg config.Bot, part string) (int, bool) {
	if n, err := strconv.Atoi(part); err == nil {
		return n, true
	}
	for i, name := range cfg.WeekdayNames {
		if part == name || (len(part) >= 3 && strings.HasPrefix(name, part)) {
			return i, true
		}
	}
	return 0, false
}

func toAnySlice(days []int) []any {
	out := make([]any, len(days))
	for i, d := range days {
		out[i] = float64(d)
	}
	return out
}

// validateObject attempts a JSON parse first, then falls back to direct
// validation of the raw text against the required fields (which fails, since
// plain text cannot satisfy a multi-field shape).
func validateObject(spec *ValidatorSpec, raw string) models.ValidationOutcome {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return models.Invalid("expected structured input")
	}
	for _, field := range spec.Fields {
		v, ok := obj[field]
		if !ok {
			return models.Invalid("missing field " + field)
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return models.Invalid("empty field " + field)
		}
	}
	return models.Valid(obj)
}

// validateArray attempts a JSON parse first, falling back to comma-splitting.
func validateArray(spec *ValidatorSpec, raw string) models.ValidationOutcome {
	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		if len(arr) == 0 {
			return models.Invalid("empty list")
		}
		return models.Valid(arr)
	}

	parts := strings.Split(raw, ",")
	var out []any
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return models.Invalid("empty list")
	}
	return models.Valid(out)
}

// validateOrderLine accepts "done" or a "<product> <quantity>" adjustment.
func validateOrderLine(raw string) models.ValidationOutcome {
	token := normalizeToken(raw)
	if token == "done" {
		return models.Valid("done")
	}
	m := orderLineRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return models.Invalid("expected '<product> <quantity>' or 'done'")
	}
	qty, err := strconv.ParseFloat(m[2], 64)
	if err != nil || qty < 0 {
		return models.Invalid("invalid quantity")
	}
	return models.Valid(map[string]any{"name": strings.TrimSpace(m[1]), "qty": qty})
}
