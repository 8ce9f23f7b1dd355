package classifier

import "strings"

// RelevanceFilter decides whether unsolicited free text deserves an AI reply
type RelevanceFilter struct {
	keywords []string
	symptoms []string
}

// NewRelevanceFilter builds a filter from health keywords and known symptom names
func NewRelevanceFilter(keywords, symptomNames []string) *RelevanceFilter {
	f := &RelevanceFilter{}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			f.keywords = append(f.keywords, k)
		}
	}
	for _, s := range symptomNames {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			f.symptoms = append(f.symptoms, s)
		}
	}
	return f
}

// IsRelevant reports whether text should be answered. Once the chat has
// recorded any symptom, every message is in context. Otherwise the text
// must contain a keyword or symptom name, compared case-insensitively.
func (f *RelevanceFilter) IsRelevant(text string, recordedSymptoms int) bool {
	if recordedSymptoms > 0 {
		return true
	}

	lower := strings.ToLower(text)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	for _, s := range f.symptoms {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// MatchKeywords returns the health keywords mentioned in text, in
// configuration order. Symptom names are not included.
func (f *RelevanceFilter) MatchKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	return found
}
