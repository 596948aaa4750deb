package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if len(cfg.SupplierCategories) == 0 {
		t.Fatal("expected supplier categories")
	}
	if len(cfg.WeekdayNames) != 7 {
		t.Errorf("expected 7 weekday names, got %d", len(cfg.WeekdayNames))
	}
	if cfg.WeekdayNames[0] != "sunday" {
		t.Errorf("weekday indexing is Sunday-first, got %q at index 0", cfg.WeekdayNames[0])
	}
	if cfg.SkipCouponToken == "" {
		t.Error("expected a skip coupon token")
	}
}

func TestIsValidCategory(t *testing.T) {
	cfg := Default()
	if !cfg.IsValidCategory("vegetables") {
		t.Error("vegetables should be a valid category")
	}
	if cfg.IsValidCategory("weapons") {
		t.Error("unknown category accepted")
	}
}

func TestIsStickyKey(t *testing.T) {
	cfg := Default()
	if !cfg.IsStickyKey("restaurantId") {
		t.Error("restaurantId should be sticky")
	}
	if cfg.IsStickyKey("supplier") {
		t.Error("in-flight flow state must not be sticky")
	}
}
