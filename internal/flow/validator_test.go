package flow

import (
	"testing"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/models"
)

func validate(t *testing.T, spec *ValidatorSpec, body string) models.ValidationOutcome {
	t.Helper()
	return ValidateSchema(config.Default(), spec, models.InboundMessage{Body: body})
}

func TestValidateLegalID(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindLegalID}

	cases := []struct {
		input string
		ok    bool
	}{
		{"123456789", true},
		{"  123456789  ", true},
		{"12345678", false},
		{"1234567890", false},
		{"12345678a", false},
		{"", false},
	}
	for _, c := range cases {
		out := validate(t, spec, c.input)
		if out.OK != c.ok {
			t.Errorf("legal id %q: got ok=%v, want %v (reason=%q)", c.input, out.OK, c.ok, out.Reason)
		}
	}
}

func TestValidateNumber(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindNumber}

	out := validate(t, spec, "12.5")
	if !out.OK || out.Data.(float64) != 12.5 {
		t.Errorf("expected 12.5, got %+v", out)
	}
	if out := validate(t, spec, "-3"); out.OK {
		t.Error("negative quantity should be rejected")
	}
	if out := validate(t, spec, "a dozen"); out.OK {
		t.Error("non-numeric input should be rejected")
	}
}

func TestValidateEmail(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindEmail}

	out := validate(t, spec, "Dana@Example.COM")
	if !out.OK {
		t.Fatalf("expected valid email, got %+v", out)
	}
	if out.Data.(string) != "dana@example.com" {
		t.Errorf("expected lowercased email, got %v", out.Data)
	}
	if out := validate(t, spec, "not-an-email"); out.OK {
		t.Error("expected invalid email to be rejected")
	}
}

func TestValidatePhone(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindPhone}

	out := validate(t, spec, "+972 50-123-4567")
	if !out.OK || out.Data.(string) != "972501234567" {
		t.Errorf("expected canonical digits, got %+v", out)
	}
	if out := validate(t, spec, "12345"); out.OK {
		t.Error("too-short phone should be rejected")
	}
}

func TestValidateTime(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindTime}
	if out := validate(t, spec, "14:00"); !out.OK {
		t.Errorf("expected 14:00 to be valid, got %+v", out)
	}
	if out := validate(t, spec, "25:99"); out.OK {
		t.Error("expected 25:99 to be rejected")
	}
}

func TestValidateEnumNormalizesCase(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindEnum, Enum: []string{"confirm", "redo"}}

	out := validate(t, spec, "  CONFIRM ")
	if !out.OK || out.Data.(string) != "confirm" {
		t.Errorf("expected normalized enum token, got %+v", out)
	}
	if out := validate(t, spec, "maybe"); out.OK {
		t.Error("unknown enum token should be rejected")
	}
}

func TestValidateDaysOptionID(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindDays, Enum: []string{"sun_wed", "daily"}}

	out := validate(t, spec, "sun_wed")
	if !out.OK {
		t.Fatalf("expected sun_wed to be valid, got %+v", out)
	}
	days := out.Data.([]any)
	if len(days) != 2 || days[0].(float64) != 0 || days[1].(float64) != 3 {
		t.Errorf("expected [0 3], got %v", days)
	}
}

func TestValidateDaysFreeForm(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindDays, Enum: []string{"sun_wed"}}

	out := validate(t, spec, "sunday, wed, 5")
	if !out.OK {
		t.Fatalf("expected free-form days to be valid, got %+v", out)
	}
	days := out.Data.([]any)
	if len(days) != 3 || days[0].(float64) != 0 || days[1].(float64) != 3 || days[2].(float64) != 5 {
		t.Errorf("expected [0 3 5], got %v", days)
	}

	if out := validate(t, spec, "someday"); out.OK {
		t.Error("unparseable day list should be rejected")
	}
}

func TestValidateObject(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindObject, Fields: []string{"name", "whatsapp"}}

	out := validate(t, spec, `{"name":"Green Farms","whatsapp":"0501234567"}`)
	if !out.OK {
		t.Fatalf("expected valid object, got %+v", out)
	}
	if out := validate(t, spec, `{"name":"Green Farms"}`); out.OK {
		t.Error("object missing required field should be rejected")
	}
	if out := validate(t, spec, "Green Farms, 0501234567"); out.OK {
		t.Error("plain text should not satisfy an object shape")
	}
}

func TestValidateArrayCommaFallback(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindArray}

	out := validate(t, spec, "tomatoes, cucumbers , onions")
	if !out.OK {
		t.Fatalf("expected valid list, got %+v", out)
	}
	items := out.Data.([]any)
	if len(items) != 3 || items[0].(string) != "tomatoes" {
		t.Errorf("unexpected items %v", items)
	}
}

func TestValidateOrderLine(t *testing.T) {
	spec := &ValidatorSpec{Kind: KindOrderLine}

	out := validate(t, spec, "tomatoes 5")
	if !out.OK {
		t.Fatalf("expected valid order line, got %+v", out)
	}
	m := out.Data.(map[string]any)
	if m["name"].(string) != "tomatoes" || m["qty"].(float64) != 5 {
		t.Errorf("unexpected order line %v", m)
	}

	if out := validate(t, spec, "Done"); !out.OK || out.Data.(string) != "done" {
		t.Errorf("expected done token, got %+v", out)
	}
	if out := validate(t, spec, "just words"); out.OK {
		t.Error("line without quantity should be rejected")
	}
}

func TestValidateMediaFallback(t *testing.T) {
	out := ValidateSchema(config.Default(), nil, models.InboundMessage{MediaURL: "https://cdn.example.com/invoice.jpg"})
	if !out.OK || out.Data.(string) != "https://cdn.example.com/invoice.jpg" {
		t.Errorf("expected media URL to satisfy a nil validator, got %+v", out)
	}
	if out := ValidateSchema(config.Default(), nil, models.InboundMessage{}); out.OK {
		t.Error("empty message should be rejected")
	}
}
