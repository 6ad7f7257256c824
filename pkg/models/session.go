package models

import (
	"errors"
	"regexp"
	"time"
)

// ErrInvalidSessionID is returned by ValidateSessionID for any id that
// fails the format rule or looks like a path-traversal attempt.
var ErrInvalidSessionID = errors.New("invalid session id")

var (
	shortSessionID = regexp.MustCompile(`^[a-z0-9]{8}$`)
	longSessionID  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
)

// ValidateSessionID enforces the session id format from the data model:
// either exactly 8 lowercase alphanumeric characters, or 1-100 characters
// drawn from [A-Za-z0-9_-]. Both forms reject path separators and "..",
// which is what actually defeats traversal since neither pattern's
// character class contains '/' or '.'.
func ValidateSessionID(id string) error {
	if id == "" {
		return ErrInvalidSessionID
	}
	if shortSessionID.MatchString(id) {
		return nil
	}
	if longSessionID.MatchString(id) {
		return nil
	}
	return ErrInvalidSessionID
}

// ToolMetrics tracks aggregate tool usage for a session.
type ToolMetrics struct {
	CallCount    int            `json:"call_count"`
	FailureCount int            `json:"failure_count"`
	ByTool       map[string]int `json:"by_tool,omitempty"`
}

// Session is a persisted record of one logical conversation.
type Session struct {
	ID          string       `json:"id"`
	CWD         string       `json:"cwd"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Model       string       `json:"model"`
	Provider    string       `json:"provider"`
	Messages    []Message    `json:"messages"`
	Title       string       `json:"title,omitempty"`
	ToolMetrics *ToolMetrics `json:"tool_metrics,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate the original
// session's messages or tool metrics through the copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	if s.ToolMetrics != nil {
		tm := *s.ToolMetrics
		if s.ToolMetrics.ByTool != nil {
			tm.ByTool = make(map[string]int, len(s.ToolMetrics.ByTool))
			for k, v := range s.ToolMetrics.ByTool {
				tm.ByTool[k] = v
			}
		}
		out.ToolMetrics = &tm
	}
	return &out
}
