package enhance

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

const (
	maxSuggestions   = 6
	defaultLevel     = "متوسط"
	minDescriptionLn = 50
)

var (
	bulletPrefix   = regexp.MustCompile(`^[-•*\d.)\s]+`)
	descIntro      = regexp.MustCompile(`^(بالتأكيد[،!]*|تأكيد[،!]*|إليك|أكيد|نعم)[^.]*[.:]`)
	descQuoted     = regexp.MustCompile(`^".*"$`)
	descFiller     = regexp.MustCompile(`(?i)لتكون.*احترافية`)
	techChattyLine = regexp.MustCompile(`^(بالتأكيد|إليك|هنا|بناءً)`)
	techIntro      = regexp.MustCompile(`(?s)^(بالتأكيد|إليك|أكيد|هنا)[^:]*[:\n]`)
	techFallback   = regexp.MustCompile(`(?s)^(بالتأكيد|إليك)[^:]*[:\n]`)
	edgePunct      = regexp.MustCompile(`^[\s،,]+|[\s،,]+$`)
)

// Skill is one suggested skill with a proficiency level.
type Skill struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Output is what the client receives; exactly one field is set per type.
type Output struct {
	EnhancedText     string   `json:"enhancedText,omitempty"`
	Suggestions      []Skill  `json:"suggestions,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// Process cleans raw model output for the given request type.
func Process(t Type, content string) *Output {
	switch t {
	case TypeSuggestSkills:
		return &Output{Suggestions: parseSkills(content)}
	case TypeGenerateResponsibilities:
		return &Output{Responsibilities: parseResponsibilities(content)}
	case TypeGenerateProjectDescription:
		return &Output{EnhancedText: cleanDescription(content)}
	case TypeSuggestTechnologies:
		return &Output{EnhancedText: cleanTechnologies(content)}
	default:
		return &Output{EnhancedText: content}
	}
}

func stripBullet(line string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
}

func replaceFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

func parseSkills(content string) []Skill {
	skills := make([]Skill, 0, maxSuggestions)
	for _, line := range strings.Split(content, "\n") {
		cleaned := stripBullet(line)
		if cleaned == "" {
			continue
		}
		skill := Skill{Name: cleaned, Level: defaultLevel}
		if strings.Contains(cleaned, "|") {
			parts := strings.Split(cleaned, "|")
			name, level := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if name != "" && level != "" {
				skill = Skill{Name: name, Level: level}
			}
		}
		skills = append(skills, skill)
		if len(skills) == maxSuggestions {
			break
		}
	}
	return skills
}

func parseResponsibilities(content string) []string {
	lines := lo.Map(strings.Split(content, "\n"), func(l string, _ int) string { return stripBullet(l) })
	lines = lo.Filter(lines, func(l string, _ int) bool {
		return l != "" && !strings.Contains(l, "بالتأكيد") && !strings.Contains(l, "إليك")
	})
	if len(lines) > maxSuggestions {
		lines = lines[:maxSuggestions]
	}
	return lines
}

func cleanDescription(content string) string {
	cleaned := strings.TrimSpace(content)
	for _, re := range []*regexp.Regexp{descIntro, descQuoted, descFiller} {
		cleaned = strings.TrimSpace(replaceFirst(re, cleaned))
	}

	lines := lo.Filter(strings.Split(cleaned, "\n"), func(l string, _ int) bool { return strings.TrimSpace(l) != "" })
	if line, ok := lo.Find(lines, func(l string) bool {
		return utf8.RuneCountInString(l) > minDescriptionLn &&
			!strings.Contains(l, "بالتأكيد") && !strings.Contains(l, "إليك") && !strings.Contains(l, "لتحسين")
	}); ok {
		cleaned = line
	} else if len(lines) > 0 {
		cleaned = lines[0]
	}
	return strings.TrimSpace(cleaned)
}

func cleanTechnologies(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.Contains(cleaned, "\n") {
		items := lo.Filter(
			lo.Map(strings.Split(cleaned, "\n"), func(l string, _ int) string { return stripBullet(l) }),
			func(l string, _ int) bool { return l != "" && !techChattyLine.MatchString(l) },
		)
		if len(items) > 0 {
			cleaned = strings.Join(items, "، ")
		}
	}
	cleaned = strings.TrimSpace(replaceFirst(techIntro, cleaned))
	cleaned = edgePunct.ReplaceAllString(cleaned, "")

	if utf8.RuneCountInString(cleaned) < 3 {
		cleaned = strings.TrimSpace(replaceFirst(techFallback, content))
	}
	return cleaned
}
