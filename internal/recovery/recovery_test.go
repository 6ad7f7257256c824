package recovery

import "testing"

func TestRecoverPicksHighestScoringCandidate(t *testing.T) {
	text := `I'll think about this. Maybe {"foo": 1} is noise.
Calling bash now: {"command": "ls -la"}`
	schemas := []ToolSchema{
		{Name: "bash", Required: []string{"command"}, Props: []string{"command"}},
	}
	res, ok := Recover(text, schemas)
	if !ok {
		t.Fatal("expected recovery")
	}
	if res.ToolName != "bash" {
		t.Errorf("ToolName = %q", res.ToolName)
	}
	if res.Input["command"] != "ls -la" {
		t.Errorf("Input = %+v", res.Input)
	}
}

func TestRecoverNoJSONReturnsFalse(t *testing.T) {
	_, ok := Recover("just plain thinking text, no braces here", nil)
	if ok {
		t.Error("expected no recovery")
	}
}

func TestRecoveryTypeTrailingJSON(t *testing.T) {
	text := `thinking... {"command": "pwd"}`
	res, ok := Recover(text, []ToolSchema{{Name: "bash", Required: []string{"command"}, Props: []string{"command"}}})
	if !ok {
		t.Fatal("expected recovery")
	}
	if res.RecoveryType != typeTrailingJSON {
		t.Errorf("RecoveryType = %q", res.RecoveryType)
	}
}

func TestRecoveryTypeWithTrailingText(t *testing.T) {
	text := `{"command": "pwd"} and then some more thoughts after`
	res, ok := Recover(text, []ToolSchema{{Name: "bash", Required: []string{"command"}, Props: []string{"command"}}})
	if !ok {
		t.Fatal("expected recovery")
	}
	if res.RecoveryType != typeJSONWithTrailingText {
		t.Errorf("RecoveryType = %q", res.RecoveryType)
	}
}
