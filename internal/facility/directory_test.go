package facility

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexahealth/triagebot/internal/classifier"
)

func testDirectory() *Directory {
	return New(map[classifier.Tier][]Facility{
		classifier.TierUrgent: {
			{Name: "Zeta Urgent Care", Address: "1 A St", Hours: "9-5", MapURL: "https://maps.example/zeta"},
			{Name: "Alpha Urgent Care", Address: "2 B St", Hours: "24h", MapURL: "https://maps.example/alpha"},
		},
		classifier.TierER: {
			{Name: "City ER", Address: "3 C St", Hours: "24h", MapURL: "https://maps.example/er"},
		},
	})
}

func TestRecommend(t *testing.T) {
	d := testDirectory()

	tests := []struct {
		name  string
		tier  classifier.Tier
		empty bool
	}{
		{"unknown tier", classifier.TierUnknown, true},
		{"self care", classifier.TierSelfCare, true},
		{"tier absent from table", classifier.TierTrauma, true},
		{"populated urgent", classifier.TierUrgent, false},
		{"populated er", classifier.TierER, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Recommend(tt.tier)
			if (got == "") != tt.empty {
				t.Fatalf("Recommend(%q) = %q, empty want %v", tt.tier, got, tt.empty)
			}
			if tt.empty {
				return
			}
			for _, f := range d.Facilities(tt.tier) {
				if !strings.Contains(got, f.Name) {
					t.Errorf("missing facility %q", f.Name)
				}
			}
			if !strings.HasSuffix(got, "\n\nIf you ever feel in danger, call 911.") {
				t.Errorf("missing footer: %q", got)
			}
		})
	}
}

func TestRecommendFormat(t *testing.T) {
	got := testDirectory().Recommend(classifier.TierUrgent)
	want := "Based on severity, you may need an urgent care clinic. Here are options in Philadelphia:\n\n" +
		"- Zeta Urgent Care (1 A St). Hours: 9-5\n  Location: https://maps.example/zeta\n" +
		"- Alpha Urgent Care (2 B St). Hours: 24h\n  Location: https://maps.example/alpha\n\n" +
		"If you ever feel in danger, call 911."
	if got != want {
		t.Errorf("Recommend =\n%q\nwant\n%q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facilities.json")

	if err := os.WriteFile(path, []byte(`{"er": [{"name": "B"}, {"name": "A"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	list := d.Facilities(classifier.TierER)
	if len(list) != 2 || list[0].Name != "B" || list[1].Name != "A" {
		t.Errorf("order not preserved: %+v", list)
	}

	if err := os.WriteFile(path, []byte(`{"hospice": [{"name": "X"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unknown tier")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestShippedFacilities(t *testing.T) {
	d, err := LoadFile(filepath.Join("..", "..", "configs", "facilities.json"))
	if err != nil {
		t.Fatalf("shipped facilities invalid: %v", err)
	}
	for _, tier := range []classifier.Tier{classifier.TierUrgent, classifier.TierER, classifier.TierTrauma, classifier.TierAppointment} {
		if d.Recommend(tier) == "" {
			t.Errorf("tier %q has no facilities", tier)
		}
	}
}
