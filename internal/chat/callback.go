package chat

import (
	"errors"
	"strings"

	"github.com/nexahealth/triagebot/internal/symptoms"
)

// ErrMalformedCallback marks a button payload that does not decode
var ErrMalformedCallback = errors.New("malformed callback payload")

// CallbackKind tags the decoded form of a button payload
type CallbackKind int

const (
	CallbackDetail  CallbackKind = iota + 1 // detail|<symptom>|<field>|<value>
	CallbackSymptom                         // symcat|<symptom>
	CallbackBack                            // symcat_back
)

const (
	detailPrefix  = "detail|"
	symptomPrefix = "symcat|"
	backPayload   = "symcat_back"
)

// Callback is a decoded button payload
type Callback struct {
	Kind    CallbackKind
	Symptom string
	Field   string
	Value   string
}

// ParseCallback decodes a raw payload once, at the transport boundary
func ParseCallback(data string) (Callback, error) {
	switch {
	case data == backPayload:
		return Callback{Kind: CallbackBack}, nil

	case strings.HasPrefix(data, detailPrefix):
		parts := strings.Split(data, "|")
		if len(parts) != 4 || parts[1] == "" || parts[2] == "" {
			return Callback{}, ErrMalformedCallback
		}
		return Callback{Kind: CallbackDetail, Symptom: parts[1], Field: parts[2], Value: parts[3]}, nil

	case strings.HasPrefix(data, symptomPrefix):
		name := strings.TrimSpace(strings.TrimPrefix(data, symptomPrefix))
		if name == "" {
			return Callback{}, ErrMalformedCallback
		}
		return Callback{Kind: CallbackSymptom, Symptom: name}, nil
	}

	return Callback{}, ErrMalformedCallback
}

// Encode renders the payload carried by a button
func (c Callback) Encode() string {
	switch c.Kind {
	case CallbackDetail:
		return symptoms.DetailPayload(c.Symptom, c.Field, c.Value)
	case CallbackSymptom:
		return symptoms.SymptomPayload(c.Symptom)
	case CallbackBack:
		return backPayload
	}
	return ""
}
