package screening

import (
	"context"
	"sync"

	"github.com/fairyhunter13/sift/internal/observability"
)

// scriptedGen answers by stage label and counts calls per stage.
type scriptedGen struct {
	mu        sync.Mutex
	answers   map[string]string
	errs      map[string]error
	panics    map[string]bool
	calls     map[string]int
	lastInput map[string]string
}

func newScriptedGen() *scriptedGen {
	return &scriptedGen{
		answers:   map[string]string{},
		errs:      map[string]error{},
		panics:    map[string]bool{},
		calls:     map[string]int{},
		lastInput: map[string]string{},
	}
}

func (g *scriptedGen) on(stage, answer string) *scriptedGen {
	g.answers[stage] = answer
	return g
}

func (g *scriptedGen) fail(stage string, err error) *scriptedGen {
	g.errs[stage] = err
	return g
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string) (string, error) {
	stage := observability.StageFromContext(ctx)
	g.mu.Lock()
	g.calls[stage]++
	g.lastInput[stage] = prompt
	answer, err, boom := g.answers[stage], g.errs[stage], g.panics[stage]
	g.mu.Unlock()
	if boom {
		panic("generator exploded")
	}
	return answer, err
}

func (g *scriptedGen) count(stage string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[stage]
}

func (g *scriptedGen) prompt(stage string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastInput[stage]
}

const (
	goodProfile = "```json\n{\"candidateName\": \"Ada Lovelace\", \"skills\": [\"Go\", \"Kubernetes\", \"go\", \"PostgreSQL\", \" \"], \"experience\": \"7 years of backend work\", \"education\": \"BSc Mathematics\"}\n```"

	goodRequirements = `{"requiredSkills": ["Go", "Kubernetes", "PostgreSQL", "gRPC"], "preferredSkills": ["Kafka", "Terraform"], "experienceYears": 5, "education": "Bachelor's", "isVague": false}`

	goodMatch = `{"skillMatches": ["Go", "Kubernetes", "PostgreSQL"], "skillGaps": ["gRPC"], "preferredMatches": ["Kafka"], "experienceMatch": true, "educationMatch": false}`

	goodReasoning = "The candidate covers most required skills. The gRPC gap is minor."

	longJobText = "We are hiring a backend engineer to build and operate Go services on Kubernetes, backed by PostgreSQL and exposed over gRPC. Kafka is a plus."
)

func happyGen() *scriptedGen {
	return newScriptedGen().
		on("profile", goodProfile).
		on("requirements", goodRequirements).
		on("match", goodMatch).
		on("decision", goodReasoning)
}
