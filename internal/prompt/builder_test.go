package prompt

import (
	"strings"
	"testing"

	"github.com/nexahealth/triagebot/pkg/llm"
)

func TestBuildSummary(t *testing.T) {
	b := NewBuilder()
	msgs := b.BuildSummary(Request{
		Symptoms: []string{"Rash", "Rash", "Fever"},
		Details: map[string]map[string]string{
			"Rash":  {"duration": ">1w"},
			"Fever": {"temperature": "high", "duration": "<3d"},
		},
	})

	if len(msgs) != 1 || msgs[0].Role != llm.RoleUser {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	content := msgs[0].Content

	for _, want := range []string{
		"Symptoms selected: Rash, Rash, Fever",
		"- Fever: duration=<3d, temperature=high",
		"- Rash: duration=>1w",
		"Severity: Appointment with provider",
		"Severity: self-care",
		"no medications",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("summary prompt missing %q", want)
		}
	}

	if strings.Index(content, "- Fever") > strings.Index(content, "- Rash") {
		t.Error("details should be rendered in sorted order")
	}
}

func TestBuildReply(t *testing.T) {
	tests := []struct {
		name       string
		req        Request
		wantSystem bool
		wantText   []string
	}{
		{
			name:     "telegram reply without context",
			req:      Request{Message: "is this serious?"},
			wantText: []string{"Symptoms selected: none", "Details: none", `User message: "is this serious?"`, "Reply under 70 words."},
		},
		{
			name:       "web reply with persona",
			req:        Request{Message: "I have a fever", Symptoms: []string{"fever"}, Persona: true},
			wantSystem: true,
			wantText:   []string{"Symptoms selected: fever", "Do not diagnose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := NewBuilder().BuildReply(tt.req)
			last := msgs[len(msgs)-1]
			if last.Role != llm.RoleUser {
				t.Errorf("last role = %q", last.Role)
			}
			hasSystem := msgs[0].Role == llm.RoleSystem && msgs[0].Content == Persona
			if hasSystem != tt.wantSystem {
				t.Errorf("system message present = %v, want %v", hasSystem, tt.wantSystem)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(last.Content, want) {
					t.Errorf("reply prompt missing %q:\n%s", want, last.Content)
				}
			}
		})
	}
}

func TestBuildReplyKeepsHistoryInOrder(t *testing.T) {
	msgs := NewBuilder().BuildReply(Request{
		Message: "what now?",
		Persona: true,
		History: []llm.ChatMessage{
			{Role: llm.RoleUser, Content: "my knee is swollen"},
			{Role: llm.RoleSystem, Content: "ignored"},
			{Role: llm.RoleAssistant, Content: "Rest it."},
		},
	})

	wantRoles := []string{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d: %+v", len(msgs), len(wantRoles), msgs)
	}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("msgs[%d].Role = %q, want %q", i, msgs[i].Role, role)
		}
	}
	if msgs[1].Content != "my knee is swollen" || msgs[2].Content != "Rest it." {
		t.Errorf("history content changed: %+v", msgs[1:3])
	}
	if !strings.Contains(msgs[3].Content, `User message: "what now?"`) {
		t.Errorf("final prompt = %q", msgs[3].Content)
	}
}
