package palette

import "testing"

func TestColor_KnownNames(t *testing.T) {
	p := NewDefault()
	cases := map[string]string{
		"VIC":      "rgba(0, 123, 255, 0.8)",
		"NARBONA":  "rgba(61, 250, 102, 0.8)",
		"SALLENT":  "rgba(250, 61, 140, 0.8)",
		"VILADRAU": "rgba(247, 250, 61, 0.8)",
	}
	for name, want := range cases {
		if got := p.Color(name); got != want {
			t.Fatalf("Color(%q): want %q, got %q", name, want, got)
		}
	}
}

func TestColor_UnknownNameGetsStableFallback(t *testing.T) {
	p := NewDefault()

	first := p.Color("UNKNOWN_TEAM")
	if first == "" {
		t.Fatalf("expected a fallback color for unknown name")
	}
	if p.Known("UNKNOWN_TEAM") {
		t.Fatalf("UNKNOWN_TEAM should not be a known name")
	}

	// Same name, same color, even from a different palette instance.
	if again := NewDefault().Color("UNKNOWN_TEAM"); again != first {
		t.Fatalf("fallback not stable: %q vs %q", first, again)
	}

	found := false
	for _, c := range Fallback {
		if c == first {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback %q is not from the fallback list", first)
	}
}

func TestParse_OverridesAndFallback(t *testing.T) {
	p, err := Parse([]byte(`
colors:
  VIC: "rgba(1, 2, 3, 0.5)"
  MANLLEU: "rgba(4, 5, 6, 0.5)"
fallback:
  - "rgba(9, 9, 9, 1)"
`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := p.Color("VIC"); got != "rgba(1, 2, 3, 0.5)" {
		t.Fatalf("VIC override: got %q", got)
	}
	if got := p.Color("MANLLEU"); got != "rgba(4, 5, 6, 0.5)" {
		t.Fatalf("MANLLEU: got %q", got)
	}
	if got := p.Color("SALLENT"); got != Default["SALLENT"] {
		t.Fatalf("defaults should survive: got %q", got)
	}
	if got := p.Color("ANYONE"); got != "rgba(9, 9, 9, 1)" {
		t.Fatalf("single fallback: got %q", got)
	}
}

func TestParse_RejectsEmptyColor(t *testing.T) {
	if _, err := Parse([]byte("colors:\n  VIC: \"\"\n")); err == nil {
		t.Fatalf("expected error for empty color")
	}
}
