package classify

import (
	"testing"

	"github.com/ashgrove-systems/mto-gateway/internal/config"
)

func defaultClasses() []config.MaterialClass {
	return []config.MaterialClass{
		{ID: ClassFinished, Pattern: `^07\.`, DisplayName: "Finished Goods"},
		{ID: ClassSelfMade, Pattern: `^05\.`, DisplayName: "Self-Made"},
		{ID: ClassPurchased, Pattern: `^03\.`, DisplayName: "Purchased"},
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c, err := New(defaultClasses())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		materialCode string
		wantID       string
		wantOK       bool
	}{
		{"07.1234", ClassFinished, true},
		{"05.9999", ClassSelfMade, true},
		{"03.0001", ClassPurchased, true},
		{"99.0000", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := c.Classify(tc.materialCode)
		if ok != tc.wantOK {
			t.Errorf("Classify(%q) ok = %v, want %v", tc.materialCode, ok, tc.wantOK)
			continue
		}
		if ok && got.ID != tc.wantID {
			t.Errorf("Classify(%q) = %q, want %q", tc.materialCode, got.ID, tc.wantID)
		}
	}
}

func TestClassifyOrderMatters(t *testing.T) {
	// A rule earlier in the list must win even when a later rule would
	// also match, since spec.md §4.8 defines first-match-wins.
	classes := []config.MaterialClass{
		{ID: "narrow", Pattern: `^07\.1`},
		{ID: "wide", Pattern: `^07\.`},
	}
	c, err := New(classes)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, ok := c.Classify("07.1234")
	if !ok || got.ID != "narrow" {
		t.Fatalf("Classify() = %+v, %v, want narrow rule to win", got, ok)
	}
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	_, err := New([]config.MaterialClass{{ID: "bad", Pattern: "("}})
	if err == nil {
		t.Fatal("expected error for invalid regexp pattern")
	}
}
