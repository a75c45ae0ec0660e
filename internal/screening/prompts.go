package screening

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompts holds the parsed templates for every generator-backed stage.
type Prompts struct {
	profile      *template.Template
	requirements *template.Template
	match        *template.Template
	reasoning    *template.Template
}

type promptFile struct {
	Profile      string `yaml:"profile"`
	Requirements string `yaml:"requirements"`
	Match        string `yaml:"match"`
	Reasoning    string `yaml:"reasoning"`
}

var promptFuncs = template.FuncMap{
	"join": func(items []string) string {
		if len(items) == 0 {
			return "none"
		}
		return strings.Join(items, ", ")
	},
	"oneLine": func(s string) string {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			return "not stated"
		}
		return s
	},
}

// DefaultPrompts returns the embedded prompt set.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(promptsYAML)
}

// MustDefaultPrompts is DefaultPrompts for package initialisation paths.
func MustDefaultPrompts() *Prompts {
	p, err := DefaultPrompts()
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePrompts parses a YAML prompt set. Every stage must be present.
func ParsePrompts(raw []byte) (*Prompts, error) {
	var f promptFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("op=screening.ParsePrompts: %w", err)
	}
	p := &Prompts{}
	for _, item := range []struct {
		name string
		text string
		dst  **template.Template
	}{
		{"profile", f.Profile, &p.profile},
		{"requirements", f.Requirements, &p.requirements},
		{"match", f.Match, &p.match},
		{"reasoning", f.Reasoning, &p.reasoning},
	} {
		if strings.TrimSpace(item.text) == "" {
			return nil, fmt.Errorf("op=screening.ParsePrompts: prompt %q missing", item.name)
		}
		t, err := template.New(item.name).Funcs(promptFuncs).Option("missingkey=error").Parse(item.text)
		if err != nil {
			return nil, fmt.Errorf("op=screening.ParsePrompts: %s: %w", item.name, err)
		}
		*item.dst = t
	}
	return p, nil
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}

type profileInput struct {
	ResumeText string
}

type requirementsInput struct {
	JobText string
}

type matchInput struct {
	CandidateSkills     []string
	CandidateExperience string
	CandidateEducation  string
	RequiredSkills      []string
	PreferredSkills     []string
	MinimumYears        int
	RequiredEducation   string
}

type reasoningInput struct {
	Outcome          string
	ScorePercent     int
	MatchedRequired  []string
	MissingRequired  []string
	MatchedPreferred []string
	ExperienceMatch  bool
	EducationMatch   bool
}

func (p *Prompts) renderProfile(in profileInput) (string, error) { return render(p.profile, in) }

func (p *Prompts) renderRequirements(in requirementsInput) (string, error) {
	return render(p.requirements, in)
}

func (p *Prompts) renderMatch(in matchInput) (string, error) { return render(p.match, in) }

func (p *Prompts) renderReasoning(in reasoningInput) (string, error) {
	return render(p.reasoning, in)
}
