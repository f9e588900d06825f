package llm

import (
	"errors"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	type verdict struct {
		Label string `json:"overall_verdict"`
	}

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: `{"overall_verdict": "TRUE"}`, want: "TRUE"},
		{name: "fenced", raw: "```json\n{\"overall_verdict\": \"FALSE\"}\n```", want: "FALSE"},
		{name: "prose around", raw: `Here you go: {"overall_verdict": "TRUE"} hope it helps`, want: "TRUE"},
		{name: "no json", raw: "I cannot answer", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "broken", raw: `{"overall_verdict": `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v verdict
			err := DecodeJSON(tt.raw, &v)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("Expected ErrNoJSON, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON failed: %v", err)
			}
			if v.Label != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, v.Label)
			}
		})
	}
}

func TestDecodeJSON_ArrayAfterProse(t *testing.T) {
	var items []map[string]string
	err := DecodeJSON(`Sub-claims: [{"claim": "a"}, {"claim": "b"}] done`, &items)
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if len(items) != 2 || items[1]["claim"] != "b" {
		t.Errorf("Unexpected items: %v", items)
	}
}

func TestToolCall_Input(t *testing.T) {
	tests := []struct {
		args string
		want string
	}{
		{`{"input": "a"}`, "a"},
		{`{"query": "b"}`, "b"},
		{`{"url": "https://c"}`, "https://c"},
		{`plain text`, "plain text"},
		{`{"other": 1}`, `{"other": 1}`},
	}
	for _, tt := range tests {
		if got := (ToolCall{Arguments: tt.args}).Input(); got != tt.want {
			t.Errorf("Input(%s) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
