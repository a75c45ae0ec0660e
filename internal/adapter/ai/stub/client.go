// Package stub provides a deterministic, offline domain.Generator for local
// development, the CLI's --offline mode and pipeline tests. It answers each
// pipeline stage with keyword heuristics over the prompt text, reading the
// stage from the request context.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fairyhunter13/sift/internal/observability"
)

// ProviderName labels metrics and errors.
const ProviderName = "stub"

var (
	quotedBlockRe = regexp.MustCompile(`(?s)"""\n(.*?)\n"""`)
	yearsRe       = regexp.MustCompile(`(?i)(\d{1,2})\+?\s*(?:years|yrs)`)
	outcomeRe     = regexp.MustCompile(`(?m)^Outcome: (.+)$`)
)

type term struct {
	name string
	re   *regexp.Regexp
}

// vocabulary is the closed skill list the stub recognises.
var vocabulary = buildVocabulary(
	"Go", "Golang", "Python", "Java", "JavaScript", "TypeScript", "Rust", "C++", "Ruby",
	"React", "Vue", "Angular", "Node.js", "Django", "Spring",
	"Kubernetes", "Docker", "Terraform", "AWS", "GCP", "Azure", "Linux",
	"PostgreSQL", "Postgres", "MySQL", "Redis", "Kafka", "MongoDB", "Elasticsearch",
	"gRPC", "GraphQL", "REST", "SQL", "CI/CD", "Prometheus",
	"Machine Learning", "TensorFlow", "PyTorch",
)

func buildVocabulary(names ...string) []term {
	out := make([]term, 0, len(names))
	for _, n := range names {
		pattern := `(?i)(^|[^A-Za-z0-9+#/.])` + regexp.QuoteMeta(n) + `($|[^A-Za-z0-9+#])`
		if n == "Go" {
			// Case-sensitive so the English verb does not count.
			pattern = `(^|[^A-Za-z0-9])Go($|[^A-Za-z0-9])`
		}
		out = append(out, term{name: n, re: regexp.MustCompile(pattern)})
	}
	return out
}

// Client is the deterministic generator.
type Client struct{}

func New() *Client { return &Client{} }

// Generate implements domain.Generator.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch stageOf(ctx, prompt) {
	case "profile":
		return c.profile(prompt)
	case "requirements":
		return c.requirements(prompt)
	case "match":
		return c.match(prompt)
	case "decision":
		return c.reasoning(prompt), nil
	default:
		return "", fmt.Errorf("stub: cannot tell which stage prompt belongs to")
	}
}

func stageOf(ctx context.Context, prompt string) string {
	if s := observability.StageFromContext(ctx); s != "unknown" {
		return s
	}
	switch {
	case strings.Contains(prompt, "Resume:"):
		return "profile"
	case strings.Contains(prompt, "Job Description:"):
		return "requirements"
	case strings.Contains(prompt, "Candidate Skills:"):
		return "match"
	case strings.Contains(prompt, "Outcome:"):
		return "decision"
	}
	return ""
}

func quoted(prompt string) string {
	if m := quotedBlockRe.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return prompt
}

func findSkills(text string) []string {
	var found []string
	for _, t := range vocabulary {
		if t.re.MatchString(text) {
			found = append(found, t.name)
		}
	}
	return found
}

func findYears(text string) *int {
	m := yearsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

var educationLevels = []struct {
	label string
	rank  int
	words []string
}{
	{"PhD", 3, []string{"phd", "ph.d", "doctorate"}},
	{"Master's degree", 2, []string{"master", "msc", "m.sc"}},
	{"Bachelor's degree", 1, []string{"bachelor", "bsc", "b.sc", "b.s."}},
}

func educationRank(text string) (string, int) {
	lower := strings.ToLower(text)
	for _, lvl := range educationLevels {
		for _, w := range lvl.words {
			if strings.Contains(lower, w) {
				return lvl.label, lvl.rank
			}
		}
	}
	return "", 0
}

func (c *Client) profile(prompt string) (string, error) {
	text := quoted(prompt)
	var name *string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if words := strings.Fields(line); len(words) >= 2 && len(words) <= 4 && !strings.ContainsAny(line, "@:0123456789") {
			name = &line
		}
		break
	}
	experience := "No experience summary found."
	if y := findYears(text); y != nil {
		experience = fmt.Sprintf("%d years of professional experience.", *y)
	}
	education, _ := educationRank(text)
	return marshal(map[string]any{
		"candidateName": name,
		"skills":        nonNil(findSkills(text)),
		"experience":    experience,
		"education":     education,
	})
}

func (c *Client) requirements(prompt string) (string, error) {
	text := quoted(prompt)
	required, preferred := text, ""
	lower := strings.ToLower(text)
	for _, marker := range []string{"nice to have", "preferred", "bonus"} {
		if i := strings.Index(lower, marker); i >= 0 {
			required, preferred = text[:i], text[i:]
			break
		}
	}
	req := findSkills(required)
	pref := subtract(findSkills(preferred), req)

	var education *string
	if label, _ := educationRank(required); label != "" {
		education = &label
	}
	return marshal(map[string]any{
		"requiredSkills":  nonNil(req),
		"preferredSkills": nonNil(pref),
		"experienceYears": findYears(required),
		"education":       education,
		"isVague":         len(req) < 3,
	})
}

func field(prompt, label string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, label+":") {
			return strings.TrimSpace(strings.TrimPrefix(line, label+":"))
		}
	}
	return ""
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" && !strings.EqualFold(p, "none") {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) match(prompt string) (string, error) {
	have := map[string]bool{}
	for _, s := range list(field(prompt, "Candidate Skills")) {
		have[canonical(s)] = true
	}
	var matched, gaps, preferred []string
	for _, s := range list(field(prompt, "Required Skills")) {
		if have[canonical(s)] {
			matched = append(matched, s)
		} else {
			gaps = append(gaps, s)
		}
	}
	for _, s := range list(field(prompt, "Preferred Skills")) {
		if have[canonical(s)] {
			preferred = append(preferred, s)
		}
	}

	expMatch := false
	if need := findYears(field(prompt, "Required Experience")); need != nil && *need > 0 {
		if got := findYears(field(prompt, "Candidate Experience")); got != nil {
			expMatch = *got >= *need
		}
	}
	eduMatch := false
	if _, needRank := educationRank(field(prompt, "Required Education")); needRank > 0 {
		_, gotRank := educationRank(field(prompt, "Candidate Education"))
		eduMatch = gotRank >= needRank
	}
	return marshal(map[string]any{
		"skillMatches":     nonNil(matched),
		"skillGaps":        nonNil(gaps),
		"preferredMatches": nonNil(preferred),
		"experienceMatch":  expMatch,
		"educationMatch":   eduMatch,
	})
}

func (c *Client) reasoning(prompt string) string {
	outcome := "Needs manual review"
	if m := outcomeRe.FindStringSubmatch(prompt); m != nil {
		outcome = strings.TrimSpace(m[1])
	}
	matched := list(field(prompt, "Matched required skills"))
	missing := list(field(prompt, "Missing required skills"))
	return fmt.Sprintf("Assessment: %s. The candidate covers %d required skill(s) and lacks %d.",
		outcome, len(matched), len(missing))
}

// canonical folds common aliases so the stub mimics semantic equivalence.
func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "golang":
		return "go"
	case "postgres":
		return "postgresql"
	case "js":
		return "javascript"
	case "node":
		return "node.js"
	case "ml":
		return "machine learning"
	}
	return s
}

func subtract(a, b []string) []string {
	seen := map[string]bool{}
	for _, s := range b {
		seen[canonical(s)] = true
	}
	var out []string
	for _, s := range a {
		if !seen[canonical(s)] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
