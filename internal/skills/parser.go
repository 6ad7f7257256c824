package skills

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillFilename is the required filename in every skill directory.
const SkillFilename = "SKILL.md"

const frontmatterDelimiter = "---"

// BodyLineWarnThreshold is the soft line-count limit past which a skill
// body should be flagged, per the file format's "soft limit 500 lines".
const BodyLineWarnThreshold = 500

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ErrMissingName is returned when a SKILL.md's frontmatter has no name.
var ErrMissingName = errors.New("skills: name is required")

// ErrMissingDescription is returned when a SKILL.md's frontmatter has no
// description.
var ErrMissingDescription = errors.New("skills: description is required")

// ErrInvalidName is returned when a skill's name fails the shared pattern.
var ErrInvalidName = errors.New("skills: name must be lowercase alphanumeric with hyphens")

// ParseSkillFile reads and parses the SKILL.md at path. The second return
// value reports whether the body exceeds the soft line-count limit.
func ParseSkillFile(path string) (*Skill, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return ParseSkill(data, path)
}

// ParseSkill parses SKILL.md content, validating required frontmatter
// fields.
func ParseSkill(data []byte, skillPath string) (*Skill, bool, error) {
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, false, err
	}
	var s Skill
	if err := yaml.Unmarshal(front, &s); err != nil {
		return nil, false, fmt.Errorf("skills: %s: %w", skillPath, err)
	}
	if err := ValidateSkill(&s); err != nil {
		return nil, false, fmt.Errorf("skills: %s: %w", skillPath, err)
	}
	s.Content = strings.TrimSpace(body)
	s.Path = skillPath
	dir := filepath.Dir(skillPath)
	s.ReferencesDir = filepath.Join(dir, "references")
	s.ScriptsDir = filepath.Join(dir, "scripts")

	overLimit := strings.Count(s.Content, "\n")+1 > BodyLineWarnThreshold
	return &s, overLimit, nil
}

// splitFrontmatter separates a leading "---\n...\n---\n" YAML block from
// the remaining markdown body, scanning line by line.
func splitFrontmatter(data []byte) (frontmatter, body []byte, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("skills: empty file")
	}
	if strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("skills: missing opening frontmatter delimiter")
	}

	var front bytes.Buffer
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		front.WriteString(line)
		front.WriteByte('\n')
	}
	if !closed {
		return nil, nil, fmt.Errorf("skills: unterminated frontmatter")
	}

	var rest bytes.Buffer
	for scanner.Scan() {
		rest.WriteString(scanner.Text())
		rest.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return front.Bytes(), rest.Bytes(), nil
}

// ValidateSkill checks the required fields and name pattern.
func ValidateSkill(s *Skill) error {
	if s.Name == "" {
		return ErrMissingName
	}
	if s.Description == "" {
		return ErrMissingDescription
	}
	if !namePattern.MatchString(s.Name) || len(s.Name) > 64 {
		return ErrInvalidName
	}
	return nil
}

// ExpandBaseDir replaces the "{baseDir}" placeholder some skill bodies use
// to reference their own directory.
func ExpandBaseDir(content, baseDir string) string {
	return strings.ReplaceAll(content, "{baseDir}", baseDir)
}
