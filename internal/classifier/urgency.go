package classifier

import (
	"strings"
)

// Tier is the urgency derived from a summary's severity line
type Tier string

const (
	TierSelfCare    Tier = "self-care"
	TierUrgent      Tier = "urgent"
	TierER          Tier = "er"
	TierTrauma      Tier = "trauma"
	TierAppointment Tier = "appointment"
	TierUnknown     Tier = ""
)

const severityPrefix = "severity:"

// rule maps a lowercased severity value to a tier when match succeeds
type rule struct {
	tier  Tier
	match func(value string) bool
}

// urgencyRules are evaluated in order. "appointment with provider" must be
// tested before anything that could match the "er" inside "provider".
var urgencyRules = []rule{
	{TierAppointment, prefix("appointment with provider")},
	{TierUrgent, prefix("urgent care")},
	{TierER, equals("er")},
	{TierER, contains("emergency room")},
	{TierTrauma, prefix("trauma center")},
	{TierTrauma, contains("trauma")},
}

// ClassifyUrgency reads the first "Severity:" line of a summary and maps
// it to a tier. Self-care and anything unrecognized yield TierUnknown.
func ClassifyUrgency(summary string) Tier {
	value, ok := SeverityValue(summary)
	if !ok || value == "" {
		return TierUnknown
	}

	for _, r := range urgencyRules {
		if r.match(value) {
			return r.tier
		}
	}
	return TierUnknown
}

// SeverityValue returns the trimmed, lowercased text after the first
// "Severity:" line, and whether such a line exists.
func SeverityValue(summary string) (string, bool) {
	for _, raw := range strings.Split(summary, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(strings.ToLower(line), severityPrefix) {
			return strings.ToLower(strings.TrimSpace(line[len(severityPrefix):])), true
		}
	}
	return "", false
}

func prefix(p string) func(string) bool {
	return func(v string) bool { return strings.HasPrefix(v, p) }
}

func equals(s string) func(string) bool {
	return func(v string) bool { return v == s }
}

func contains(s string) func(string) bool {
	return func(v string) bool { return strings.Contains(v, s) }
}
