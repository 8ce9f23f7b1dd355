package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nexahealth/triagebot/pkg/llm"
)

// Persona names the assistant in web chat replies
const Persona = "You are NexaHealth AI Assistant, a helpful medical information assistant. Provide clear, concise health guidance."

// Request is the collected symptom context sent to the model
type Request struct {
	Symptoms []string                     // flattened, repeats included
	Details  map[string]map[string]string // symptom -> field -> value
	Message  string                       // free-text user message, empty for summaries
	Persona  bool                         // prepend Persona as a system message
	History  []llm.ChatMessage            // earlier turns, oldest first
}

// Builder constructs prompts for the AI provider
type Builder struct{}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildSummary asks for a short triage summary with exactly one severity line
func (b *Builder) BuildSummary(req Request) []llm.ChatMessage {
	var sb strings.Builder
	sb.Grow(1024)

	writeContext(&sb, req)
	sb.WriteString("\nProvide a concise, safe triage summary:\n")
	sb.WriteString("- possible explanations (NOT a diagnosis)\n")
	sb.WriteString("- write EXACTLY one line starting with:\n")
	for i, option := range SeverityOptions {
		if i > 0 {
			sb.WriteString("  OR\n")
		}
		sb.WriteString("  Severity: " + option + "\n")
	}
	sb.WriteString("- red flags to watch for\n")
	sb.WriteString("- under 70 words\n")
	sb.WriteString("- no medications\n")
	sb.WriteString("- do not use any \"*\" when answering\n")
	sb.WriteString("- use common words, less medical terms, make it very easy to comprehend\n")

	return []llm.ChatMessage{{Role: llm.RoleUser, Content: sb.String()}}
}

// SeverityOptions are the severity values the summary may choose from
var SeverityOptions = []string{
	"self-care",
	"urgent care",
	"ER",
	"Trauma center",
	"Appointment with provider",
}

// BuildReply asks for a short answer to a free-text message in symptom
// context. Earlier turns go between the persona and the final prompt.
func (b *Builder) BuildReply(req Request) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(req.History)+2)
	if req.Persona {
		messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: Persona})
	}
	for _, turn := range req.History {
		if turn.Role != llm.RoleUser && turn.Role != llm.RoleAssistant {
			continue
		}
		messages = append(messages, turn)
	}

	var sb strings.Builder
	sb.Grow(512)
	writeContext(&sb, req)
	sb.WriteString(fmt.Sprintf("\nUser message: %q\n\n", req.Message))
	sb.WriteString("Reply under 70 words.\n")
	sb.WriteString("Do not diagnose or give medication.\n")
	sb.WriteString("Use simple language.\n")
	sb.WriteString("You may remind the user that this is not medical advice.\n")

	return append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: sb.String()})
}

func writeContext(sb *strings.Builder, req Request) {
	sb.WriteString("Context:\n")
	if len(req.Symptoms) == 0 {
		sb.WriteString("Symptoms selected: none\n")
	} else {
		sb.WriteString("Symptoms selected: " + strings.Join(req.Symptoms, ", ") + "\n")
	}

	sb.WriteString("Details:")
	if len(req.Details) == 0 {
		sb.WriteString(" none\n")
		return
	}
	sb.WriteString("\n")
	for _, symptom := range sortedKeys(req.Details) {
		fields := req.Details[symptom]
		if len(fields) == 0 {
			continue
		}
		pairs := make([]string, 0, len(fields))
		for _, f := range sortedKeys(fields) {
			pairs = append(pairs, f+"="+fields[f])
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", symptom, strings.Join(pairs, ", ")))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
