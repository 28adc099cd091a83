package rules

import (
	"regexp"
	"strings"
	"testing"
)

func TestSet_FirstMatchWins(t *testing.T) {
	set := NewSet(
		Rule{Pattern: regexp.MustCompile(`\b(foo)\b`), Label: "first"},
		Rule{Pattern: regexp.MustCompile(`\b(bar)\b`), Label: "second"},
	)

	label, ok := set.Classify("bar and foo")
	if !ok || label != "first" {
		t.Fatalf("want rule order to win, got %q ok=%v", label, ok)
	}

	label, ok = set.Classify("only bar here")
	if !ok || label != "second" {
		t.Fatalf("want second rule, got %q ok=%v", label, ok)
	}

	if _, ok := set.Classify("neither"); ok {
		t.Fatal("want no match")
	}
}

func TestSet_CaptureAndNormalize(t *testing.T) {
	set := NewSet(
		Rule{Pattern: regexp.MustCompile(`size (\w+)`), Normalize: strings.ToUpper},
	)
	label, ok := set.Classify("available in size xl now")
	if !ok || label != "XL" {
		t.Fatalf("want normalized capture XL, got %q ok=%v", label, ok)
	}
}
