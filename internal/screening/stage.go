package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/sift/internal/adapter/ai"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
)

var tracer = otel.Tracer("screening")

// kit is the immutable material shared by every stage.
type kit struct {
	prompts *Prompts
	schemas *schemaSet
	cleaner *ai.ResponseCleaner
}

var defaultKit = sync.OnceValues(func() (*kit, error) {
	prompts, err := DefaultPrompts()
	if err != nil {
		return nil, err
	}
	schemas, err := loadSchemas()
	if err != nil {
		return nil, fmt.Errorf("op=screening.loadSchemas: %w", err)
	}
	return &kit{prompts: prompts, schemas: schemas, cleaner: ai.NewResponseCleaner()}, nil
})

func mustKit() *kit {
	k, err := defaultKit()
	if err != nil {
		panic(err)
	}
	return k
}

// generator calls the capability for one stage. The stage label travels in the
// context for metrics, logs and stage-aware stubs. Errors come back wrapped as
// upstream failures.
type generator struct {
	gen domain.Generator
}

func (g generator) call(ctx context.Context, stage domain.Stage, prompt string) (string, error) {
	ctx = observability.ContextWithStage(ctx, string(stage))
	ctx, span := tracer.Start(ctx, "screening."+string(stage), trace.WithAttributes(
		attribute.String("screening.stage", string(stage)),
		attribute.Int("prompt.chars", len(prompt)),
	))
	defer span.End()

	out, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return "", domain.NewUpstreamError("", err)
	}
	return out, nil
}

// decodeStage cleans a JSON answer, checks it against schema and unmarshals it into v.
func (k *kit) decodeStage(raw string, schema *gojsonschema.Schema, v any) error {
	cleaned, err := k.cleaner.CleanAndValidateJSON(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrSchemaInvalid, err)
	}
	if err := validate(schema, cleaned); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrSchemaInvalid, err)
	}
	return nil
}

// dedupe trims, drops blanks and removes case-insensitive duplicates, keeping
// the first spelling and the original order.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		key := strings.ToLower(it)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
