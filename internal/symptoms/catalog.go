package symptoms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrInvalidCatalog marks a catalog document that failed validation
var ErrInvalidCatalog = errors.New("invalid symptom catalog")

// payloadDelimiter separates fields in button payloads, so it may not
// appear inside any identifier that travels in one.
const payloadDelimiter = "|"

// MaxPayloadBytes is the largest button payload the messaging platform accepts
const MaxPayloadBytes = 64

// Option is one answer button of a follow-up question
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts both ["label", "value"] pairs and {"label", "value"} objects
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("option must be a [label, value] pair, got %d elements", len(pair))
		}
		o.Label, o.Value = pair[0], pair[1]
		return nil
	}

	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Option(p)
	return nil
}

// Question is one step of a symptom flow
type Question struct {
	FieldID string   `json:"field_id"`
	Text    string   `json:"question"`
	Options []Option `json:"options"`
}

// Symptom is a catalog entry with its ordered follow-up questions
type Symptom struct {
	Name  string
	Label string
	Flow  []Question
}

// Category is a body-system grouping shown in the main menu
type Category struct {
	Name     string
	Symptoms []string
}

// Catalog is the immutable symptom configuration loaded at startup
type Catalog struct {
	categories []Category
	byCategory map[string][]string
	symptoms   map[string]Symptom
	names      []string
}

type rawSymptom struct {
	Label string     `json:"label"`
	Flow  []Question `json:"flow"`
}

type rawCatalog struct {
	Categories orderedCategories     `json:"categories"`
	Symptoms   map[string]rawSymptom `json:"symptoms"`
}

// orderedCategories keeps the document order of the categories object,
// which drives the layout of the main keyboard.
type orderedCategories []Category

func (oc *orderedCategories) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("categories must be an object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected category key %v", tok)
		}

		var list []string
		if err := dec.Decode(&list); err != nil {
			return fmt.Errorf("category %q: %w", name, err)
		}
		*oc = append(*oc, Category{Name: name, Symptoms: list})
	}

	_, err = dec.Token()
	return err
}

// LoadFile reads and validates a catalog from disk
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symptom config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return build(raw)
}

func build(raw rawCatalog) (*Catalog, error) {
	if len(raw.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories defined", ErrInvalidCatalog)
	}

	c := &Catalog{
		byCategory: make(map[string][]string, len(raw.Categories)),
		symptoms:   make(map[string]Symptom, len(raw.Symptoms)),
	}

	for name, rs := range raw.Symptoms {
		if err := validateSymptom(name, rs); err != nil {
			return nil, err
		}
		label := rs.Label
		if label == "" {
			label = name
		}
		c.symptoms[name] = Symptom{Name: name, Label: label, Flow: rs.Flow}
	}

	for _, cat := range raw.Categories {
		if _, dup := c.byCategory[cat.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidCatalog, cat.Name)
		}
		for _, s := range cat.Symptoms {
			if _, ok := c.symptoms[s]; !ok {
				return nil, fmt.Errorf("%w: category %q references unknown symptom %q", ErrInvalidCatalog, cat.Name, s)
			}
		}
		c.byCategory[cat.Name] = cat.Symptoms
		c.categories = append(c.categories, cat)
	}

	// Symptom names in category order first, then the rest, so free-text
	// matching is deterministic.
	seen := make(map[string]bool, len(c.symptoms))
	for _, cat := range c.categories {
		for _, s := range cat.Symptoms {
			if !seen[s] {
				seen[s] = true
				c.names = append(c.names, s)
			}
		}
	}
	var rest []string
	for name := range c.symptoms {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	c.names = append(c.names, rest...)

	return c, nil
}

func validateSymptom(name string, rs rawSymptom) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty symptom name", ErrInvalidCatalog)
	}
	if strings.Contains(name, payloadDelimiter) {
		return fmt.Errorf("%w: symptom %q contains %q", ErrInvalidCatalog, name, payloadDelimiter)
	}

	if n := len(SymptomPayload(name)); n > MaxPayloadBytes {
		return fmt.Errorf("%w: symptom %q is too long for a button payload", ErrInvalidCatalog, name)
	}

	fields := make(map[string]bool, len(rs.Flow))
	for _, q := range rs.Flow {
		if q.FieldID == "" {
			return fmt.Errorf("%w: symptom %q has a question without field_id", ErrInvalidCatalog, name)
		}
		if fields[q.FieldID] {
			return fmt.Errorf("%w: symptom %q repeats field_id %q", ErrInvalidCatalog, name, q.FieldID)
		}
		fields[q.FieldID] = true

		if strings.Contains(q.FieldID, payloadDelimiter) {
			return fmt.Errorf("%w: field_id %q contains %q", ErrInvalidCatalog, q.FieldID, payloadDelimiter)
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: symptom %q field %q has no options", ErrInvalidCatalog, name, q.FieldID)
		}
		for _, o := range q.Options {
			if strings.Contains(o.Value, payloadDelimiter) {
				return fmt.Errorf("%w: option value %q contains %q", ErrInvalidCatalog, o.Value, payloadDelimiter)
			}
			if n := len(DetailPayload(name, q.FieldID, o.Value)); n > MaxPayloadBytes {
				return fmt.Errorf("%w: answer payload for %s/%s/%s is %d bytes, limit %d",
					ErrInvalidCatalog, name, q.FieldID, o.Value, n, MaxPayloadBytes)
			}
		}
	}
	return nil
}

// Categories returns the categories in configuration order
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// HasCategory reports whether name is a configured category
func (c *Catalog) HasCategory(name string) bool {
	_, ok := c.byCategory[name]
	return ok
}

// SymptomsIn lists the symptoms of a category
func (c *Catalog) SymptomsIn(category string) []string {
	return c.byCategory[category]
}

// Lookup returns the symptom entry for name
func (c *Catalog) Lookup(name string) (Symptom, bool) {
	s, ok := c.symptoms[name]
	return s, ok
}

// HasSymptom reports whether name is a configured symptom
func (c *Catalog) HasSymptom(name string) bool {
	_, ok := c.symptoms[name]
	return ok
}

// Flow returns the ordered follow-up questions of a symptom
func (c *Catalog) Flow(name string) []Question {
	return c.symptoms[name].Flow
}

// Names lists every symptom name
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// SymptomPayload encodes the button payload that selects a symptom
func SymptomPayload(symptom string) string {
	return "symcat" + payloadDelimiter + symptom
}

// DetailPayload encodes the button payload that answers a follow-up question
func DetailPayload(symptom, field, value string) string {
	return strings.Join([]string{"detail", symptom, field, value}, payloadDelimiter)
}
