// Package playbookdto - Test wire format và validate của body hoàn thành step.
package playbookdto

import (
	"bytes"
	"encoding/json"
	"testing"

	"playbook_engine/internal/global"
)

// decodeCompleteBody decode body theo đúng cách ParseRequestBody làm (UseNumber)
func decodeCompleteBody(t *testing.T, body string) CompleteStepInput {
	t.Helper()
	var input CompleteStepInput
	decoder := json.NewDecoder(bytes.NewReader([]byte(body)))
	decoder.UseNumber()
	if err := decoder.Decode(&input); err != nil {
		t.Fatalf("body hợp lệ phải decode được: %v", err)
	}
	return input
}

func TestCompleteStepInput_SnakeCaseBody(t *testing.T) {
	input := decodeCompleteBody(t, `{"outputs":{"amount":5},"ai_confidence":0.9,"ai_insights":"ok"}`)

	if input.AIConfidence == nil || *input.AIConfidence != 0.9 {
		t.Errorf("ai_confidence từ body phải được giữ lại, nhận %v", input.AIConfidence)
	}
	if input.AIInsights != "ok" {
		t.Errorf("ai_insights từ body phải được giữ lại, nhận %q", input.AIInsights)
	}
	if _, ok := input.Outputs["amount"]; !ok {
		t.Error("outputs phải được giữ lại")
	}
}

func TestCompleteStepInput_ConfidenceRange(t *testing.T) {
	global.InitValidator()

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"trong khoảng", `{"ai_confidence":0.9}`, false},
		{"biên dưới", `{"ai_confidence":0}`, false},
		{"biên trên", `{"ai_confidence":1}`, false},
		{"vượt khoảng", `{"ai_confidence":7.5}`, true},
		{"âm", `{"ai_confidence":-0.1}`, true},
		{"không gửi", `{"outputs":{}}`, false},
	}
	for _, tc := range cases {
		input := decodeCompleteBody(t, tc.body)
		err := global.Validate.Struct(&input)
		if tc.wantErr && err == nil {
			t.Errorf("%s: ai_confidence ngoài [0,1] phải bị từ chối", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: body hợp lệ phải qua validate, nhận %v", tc.name, err)
		}
	}
}
