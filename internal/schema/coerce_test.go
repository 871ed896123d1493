package schema

import (
	"testing"
	"time"
)

func TestCoerce_Number(t *testing.T) {
	got, err := Coerce(TypeNumber, "42.5")
	if err != nil {
		t.Fatalf("coerce number: %v", err)
	}
	if got != 42.5 {
		t.Fatalf("expected 42.5, got %v", got)
	}

	got, err = Coerce(TypeNumber, 7)
	if err != nil {
		t.Fatalf("coerce int: %v", err)
	}
	if got != float64(7) {
		t.Fatalf("expected 7.0, got %v", got)
	}

	if _, err := Coerce(TypeNumber, "not-a-number"); err == nil {
		t.Fatal("expected error for unparseable number")
	}
}

func TestCoerce_Date(t *testing.T) {
	for _, raw := range []string{
		"2024-03-15T10:30:00Z",
		"2024-03-15 10:30:00",
		"2024-03-15",
	} {
		got, err := Coerce(TypeDate, raw)
		if err != nil {
			t.Fatalf("coerce date %q: %v", raw, err)
		}
		ts, ok := got.(time.Time)
		if !ok {
			t.Fatalf("expected time.Time for %q, got %T", raw, got)
		}
		if ts.Year() != 2024 || ts.Month() != time.March || ts.Day() != 15 {
			t.Fatalf("wrong date for %q: %v", raw, ts)
		}
	}

	if _, err := Coerce(TypeDate, "yesterday"); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestCoerce_Boolean(t *testing.T) {
	for raw, want := range map[any]bool{
		"true":  true,
		"1":     true,
		"on":    true,
		"false": false,
		"no":    false,
		"":      false,
	} {
		got, err := Coerce(TypeBoolean, raw)
		if err != nil {
			t.Fatalf("coerce boolean %v: %v", raw, err)
		}
		if got != want {
			t.Fatalf("boolean %v: expected %v, got %v", raw, want, got)
		}
	}

	got, err := Coerce(TypeBoolean, true)
	if err != nil || got != true {
		t.Fatalf("coerce native bool: %v %v", got, err)
	}
}

func TestCoerce_Text(t *testing.T) {
	got, err := Coerce(TypeText, "hello")
	if err != nil || got != "hello" {
		t.Fatalf("coerce text: %v %v", got, err)
	}

	// nil becomes the empty string rather than an error
	got, err = Coerce(TypeText, nil)
	if err != nil || got != "" {
		t.Fatalf("coerce nil text: %v %v", got, err)
	}
}

func TestFieldOptions_Validate(t *testing.T) {
	if err := (FieldOptions{}).Validate(TypeSelect); err == nil {
		t.Fatal("select without choices should be rejected")
	}
	if err := (FieldOptions{Choices: []string{"a", "b"}}).Validate(TypeSelect); err != nil {
		t.Fatalf("select with choices: %v", err)
	}
	if err := (FieldOptions{}).Validate(TypeRelation); err == nil {
		t.Fatal("relation without target entity should be rejected")
	}
	if err := (FieldOptions{Entity: "vehicles"}).Validate(TypeRelation); err != nil {
		t.Fatalf("relation with entity: %v", err)
	}
	if err := (FieldOptions{Choices: []string{"a"}}).Validate(TypeText); err == nil {
		t.Fatal("text with choices should be rejected")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Vehicles":      "vehicles",
		"Work Orders":   "work-orders",
		"spare_parts":   "spare-parts",
		"  Customers  ": "customers",
		"a!b@c":         "abc",
	}
	for raw, want := range cases {
		if got := Slugify(raw); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestFieldCheckRule(t *testing.T) {
	f := Field{Name: "year", Type: TypeNumber, Rule: "value >= 1900 && value <= 2100"}

	if err := f.CheckRule(float64(2021)); err != nil {
		t.Fatalf("valid year rejected: %v", err)
	}
	if err := f.CheckRule(float64(1500)); err == nil {
		t.Fatal("expected rule rejection for year 1500")
	}

	// empty rule always passes
	none := Field{Name: "plate", Type: TypeText}
	if err := none.CheckRule("KA-01-1234"); err != nil {
		t.Fatalf("empty rule should pass: %v", err)
	}
}

func TestCompileRule_Invalid(t *testing.T) {
	if _, err := CompileRule("value >="); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

// Comparison rules must compile without knowing the value's type up front;
// typed columns only resolve at evaluation time.
func TestCompileRule_Comparisons(t *testing.T) {
	for _, rule := range []string{
		"value >= 1900 && value <= 2100",
		`value != ""`,
		"len(value) > 3",
	} {
		if _, err := CompileRule(rule); err != nil {
			t.Fatalf("rule %q failed to compile: %v", rule, err)
		}
	}
}

func TestCheckRule_CachesCompiledProgram(t *testing.T) {
	rule := "value > 10 && value < 20"
	ruleCache.Delete(rule)

	f := Field{Name: "qty", Type: TypeNumber, Rule: rule}
	if err := f.CheckRule(float64(15)); err != nil {
		t.Fatalf("valid value rejected: %v", err)
	}
	if _, ok := ruleCache.Load(rule); !ok {
		t.Fatal("expected compiled program to be cached after first evaluation")
	}
	// repeated evaluations reuse the cached program
	if err := f.CheckRule(float64(25)); err == nil {
		t.Fatal("expected rejection for out-of-range value")
	}
}
