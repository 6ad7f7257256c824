package skills

import (
	"fmt"
	"regexp"
	"strings"
)

var invokePattern = regexp.MustCompile(`(?i)^/skill\s+([a-z0-9][a-z0-9-]*)\s*`)

// ErrUnknownSkill is returned when a /skill invocation names a skill the
// registry does not have.
type ErrUnknownSkill struct {
	Name string
}

func (e *ErrUnknownSkill) Error() string {
	return fmt.Sprintf("skills: unknown skill %q", e.Name)
}

// Preprocess handles a leading "/skill <name>" in userText: it returns the
// text after the name as rewritten and the skill's wrapped body as
// injected. If userText does not start with "/skill", it is returned
// unchanged with injected="" and matched=false. An unknown skill name
// produces an error rather than a pass-through message, matching the
// requirement that unknown invocations never reach the model.
func (r *Registry) Preprocess(userText string) (rewritten, injected string, matched bool, err error) {
	loc := invokePattern.FindStringSubmatchIndex(userText)
	if loc == nil {
		return userText, "", false, nil
	}
	name := strings.ToLower(userText[loc[2]:loc[3]])
	remainder := strings.TrimSpace(userText[loc[1]:])

	body, ok := r.TriggerSkill(name)
	if !ok {
		return "", "", true, &ErrUnknownSkill{Name: name}
	}
	return remainder, body, true, nil
}
