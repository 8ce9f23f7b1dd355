package facility

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nexahealth/triagebot/internal/classifier"
)

const safetyFooter = "If you ever feel in danger, call 911."

var headers = map[classifier.Tier]string{
	classifier.TierUrgent:      "Based on severity, you may need an urgent care clinic. Here are options in Philadelphia:",
	classifier.TierER:          "Based on severity, you may need an emergency room. Here are nearby ER options:",
	classifier.TierTrauma:      "Based on severity, a trauma center may be appropriate. Here are nearby trauma centers:",
	classifier.TierAppointment: "Based on severity, you may only need a primary care appointment. Here are some options:",
}

// Facility is one place a user can be sent to
type Facility struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Hours   string `json:"hours"`
	MapURL  string `json:"map_url"`
}

// Directory holds the static facility lists keyed by urgency tier
type Directory struct {
	byTier map[classifier.Tier][]Facility
}

// New builds a directory from in-memory lists
func New(byTier map[classifier.Tier][]Facility) *Directory {
	d := &Directory{byTier: make(map[classifier.Tier][]Facility, len(byTier))}
	for tier, list := range byTier {
		d.byTier[tier] = append([]Facility(nil), list...)
	}
	return d
}

// LoadFile reads facilities.json. Unknown tier keys are rejected so a typo
// in the file fails at startup instead of silently hiding a list.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facilities: %w", err)
	}

	var raw map[string][]Facility
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse facilities: %w", err)
	}

	byTier := make(map[classifier.Tier][]Facility, len(raw))
	for key, list := range raw {
		tier := classifier.Tier(key)
		if _, ok := headers[tier]; !ok {
			return nil, fmt.Errorf("facilities: unknown tier %q", key)
		}
		for i, f := range list {
			if f.Name == "" {
				return nil, fmt.Errorf("facilities: %s entry %d has no name", key, i)
			}
		}
		byTier[tier] = list
	}
	return New(byTier), nil
}

// Facilities returns the configured list for a tier
func (d *Directory) Facilities(tier classifier.Tier) []Facility {
	return d.byTier[tier]
}

// Recommend renders the facility message for a tier, or "" when the tier
// has no action or no configured facilities
func (d *Directory) Recommend(tier classifier.Tier) string {
	header, ok := headers[tier]
	if !ok {
		return ""
	}
	list := d.Facilities(tier)
	if len(list) == 0 {
		return ""
	}

	lines := make([]string, 0, len(list))
	for _, f := range list {
		lines = append(lines, fmt.Sprintf("- %s (%s). Hours: %s\n  Location: %s", f.Name, f.Address, f.Hours, f.MapURL))
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(safetyFooter)
	return b.String()
}
