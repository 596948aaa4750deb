package models

import "testing"

func TestContextCloneIsDeep(t *testing.T) {
	original := Context{
		"name": "Dana",
		"supplier": map[string]any{
			"products": []any{
				map[string]any{"name": "tomatoes", "baseQty": float64(10)},
			},
		},
		"queue": []any{"tomatoes", "cucumbers"},
	}

	clone := original.Clone()
	clone["name"] = "Eli"
	clone.Map("supplier")["products"].([]any)[0].(map[string]any)["baseQty"] = float64(99)
	clone.Slice("queue")[0] = "onions"

	if original.String("name") != "Dana" {
		t.Error("top-level value shared between clone and original")
	}
	base := original.Map("supplier")["products"].([]any)[0].(map[string]any)["baseQty"]
	if base != float64(10) {
		t.Error("nested map shared between clone and original")
	}
	if original.Slice("queue")[0] != "tomatoes" {
		t.Error("slice shared between clone and original")
	}
}

func TestContextCloneNil(t *testing.T) {
	var c Context
	clone := c.Clone()
	if clone == nil {
		t.Fatal("expected non-nil empty clone")
	}
	clone["key"] = "value"
}

func TestContextAccessors(t *testing.T) {
	c := Context{
		"str":   "hello",
		"float": float64(2.5),
		"int":   3,
		"list":  []any{"a"},
		"map":   map[string]any{"k": "v"},
	}

	if c.String("str") != "hello" || c.String("float") != "" || c.String("missing") != "" {
		t.Error("String accessor misbehaved")
	}
	if n, ok := c.Number("float"); !ok || n != 2.5 {
		t.Errorf("Number(float) = %v, %v", n, ok)
	}
	if n, ok := c.Number("int"); !ok || n != 3 {
		t.Errorf("Number(int) = %v, %v", n, ok)
	}
	if _, ok := c.Number("str"); ok {
		t.Error("Number must reject non-numeric values")
	}
	if len(c.Slice("list")) != 1 || c.Slice("str") != nil {
		t.Error("Slice accessor misbehaved")
	}
	if c.Map("map")["k"] != "v" || c.Map("list") != nil {
		t.Error("Map accessor misbehaved")
	}
}

func TestNewConversationStartsAtInit(t *testing.T) {
	conv := NewConversation("972501234567")
	if conv.CurrentState != StateInit {
		t.Errorf("expected INIT, got %s", conv.CurrentState)
	}
	if conv.Context == nil {
		t.Error("expected initialized context")
	}
}
