package validation

import "testing"

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	OneOf("type", "refund", []string{"sale", "restock", "blank"}, v)
	if v.Empty() {
		t.Fatalf("expected violations")
	}
	if v["name"] != "required" {
		t.Fatalf("expected name required got %q", v["name"])
	}
	if v["type"] != "invalid_value" {
		t.Fatalf("expected type violation got %q", v["type"])
	}

	ok := Violations{}
	OneOf("type", "sale", []string{"sale"}, ok)
	Required("name", "Cola", ok)
	if !ok.Empty() {
		t.Fatalf("expected no violations got %v", ok)
	}
}
