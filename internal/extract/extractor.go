package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/llm"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/schema"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// systemInstruction heads every extraction prompt. It pins the three rules
// the cascade depends on: evidence only, null for the unknown, and no leakage
// from the worked example into the answer.
const systemInstruction = "You are a specialized AI algorithm for scientific data extraction, designed to analyze research papers. Extract only the relevant information from the provided context. If an attribute's value cannot be determined from the context, return null for that attribute. Rely solely on the given context to extract information; do not use example content to influence the response's content."

// historyWindow is how many prior conversational turns travel in the prompt.
const historyWindow = 2

// Config selects the strategy list for the deployment's generator.
type Config struct {
	// ForceJSON selects the low-capability cascade for local deployments
	// whose generator lacks native schema-constrained output: both steps run
	// in forced-JSON mode and rely on lenient record parsing instead.
	ForceJSON bool
}

// Extractor produces the structured record for a query. It runs an ordered
// strategy list: a cheap first request, then a stricter regeneration when the
// first output does not parse. The list is explicit rather than
// exception-driven so adding a strategy is a one-line change.
type Extractor struct {
	gen      llm.Generator
	inv      *llm.Invoker
	mapper   *FieldMapper
	examples []Example
	cfg      Config
	log      logger.Logger
}

func NewExtractor(gen llm.Generator, inv *llm.Invoker, cfg Config, log logger.Logger) *Extractor {
	return &Extractor{
		gen:      gen,
		inv:      inv,
		mapper:   NewFieldMapper(log),
		examples: builtinExamples,
		cfg:      cfg,
		log:      log,
	}
}

type strategy struct {
	name  string
	run   func(context.Context) (string, error)
	parse func(raw string) (*schema.Record, error)
}

// Extract runs the strategy cascade over the retrieved context and returns
// the record together with the raw text of the first generation that
// produced output. Each strategy gets full rate-limit and retry treatment; a
// strategy whose output cannot be mapped falls through to the next. The error
// of the last strategy is returned when all of them fail.
func (e *Extractor) Extract(ctx context.Context, s *schema.Schema, query string, history []models.ChatTurn, contextText string) (*schema.Record, string, error) {
	var strategies []strategy
	if e.cfg.ForceJSON {
		strategies = []strategy{
			{
				name: "forced-JSON record",
				run: func(ctx context.Context) (string, error) {
					return e.gen.GenerateJSON(ctx, e.jsonPrompt(s, query, history, contextText, false))
				},
				parse: func(raw string) (*schema.Record, error) { return schema.RecordFromJSON(s, raw) },
			},
			{
				name: "forced-JSON retry",
				run: func(ctx context.Context) (string, error) {
					return e.gen.GenerateJSON(ctx, e.jsonPrompt(s, query, history, contextText, true))
				},
				parse: func(raw string) (*schema.Record, error) { return schema.RecordFromJSON(s, raw) },
			},
		}
	} else {
		strategies = []strategy{
			{
				name: "free-text table",
				run: func(ctx context.Context) (string, error) {
					return e.gen.Generate(ctx, e.tablePrompt(s, query, history, contextText))
				},
				parse: func(raw string) (*schema.Record, error) { return e.mapper.MapTable(s, raw) },
			},
			{
				name: "schema-constrained",
				run: func(ctx context.Context) (string, error) {
					return e.gen.GenerateStructured(ctx, e.structuredPrompt(s, query, history, contextText), s.Name(), s.JSONSchema())
				},
				parse: func(raw string) (*schema.Record, error) { return schema.RecordFromJSON(s, raw) },
			},
		}
	}

	var rawText string
	var lastErr error
	for _, st := range strategies {
		out, err := llm.Invoke(ctx, e.inv, st.run)
		if err != nil {
			e.log.Warn("%s generation failed: %v", st.name, err)
			lastErr = err
			continue
		}
		if rawText == "" {
			rawText = out
		}
		record, err := st.parse(out)
		if err != nil {
			e.log.Warn("%s output did not map: %v", st.name, err)
			lastErr = err
			continue
		}
		e.log.Info("extraction succeeded via %s strategy", st.name)
		return record, rawText, nil
	}
	return nil, rawText, fmt.Errorf("all extraction strategies failed: %w", lastErr)
}

// assemble builds the shared prompt frame: system instruction, the last two
// conversational turns, the best-matching worked example, the context block,
// the query, then the strategy's format request.
func (e *Extractor) assemble(query string, history []models.ChatTurn, contextText, exampleBlock, request string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n")

	if h := historyBlock(history); h != "" {
		b.WriteString("\nHistory:\n")
		b.WriteString(h)
	}
	if exampleBlock != "" {
		b.WriteString("\nExample response for a similar request:\n")
		b.WriteString(exampleBlock)
		b.WriteString("\n")
	}
	b.WriteString("\nContext:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuery: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(request)
	return b.String()
}

func (e *Extractor) tablePrompt(s *schema.Schema, query string, history []models.ChatTurn, contextText string) string {
	var exampleBlock string
	if ex, ok := bestExample(query, e.examples); ok {
		exampleBlock = renderExampleTable(s, ex)
	}
	return e.assemble(query, history, contextText, exampleBlock, s.ExtractionPrompt())
}

func (e *Extractor) structuredPrompt(s *schema.Schema, query string, history []models.ChatTurn, contextText string) string {
	request := "Extract the quantities described by the output schema from the context above. Use null for any quantity the context does not evidence. Include units inside string values where applicable."
	return e.assemble(query, history, contextText, "", request)
}

// jsonPrompt is the low-capability path: the target shape travels inside the
// prompt and the generator is only held to emitting syntactically valid JSON.
// The strict retry spells the shape out as an explicit schema document.
func (e *Extractor) jsonPrompt(s *schema.Schema, query string, history []models.ChatTurn, contextText string, strict bool) string {
	var shape string
	if strict {
		raw, err := json.Marshal(s.JSONSchema())
		if err != nil {
			raw = []byte("{}")
		}
		shape = "Your output must validate against this JSON schema exactly, with no extra keys:\n" + string(raw)
	} else {
		var fields strings.Builder
		for _, f := range s.Fields() {
			fmt.Fprintf(&fields, "  %q: %s\n", f.Name, f.Description)
		}
		shape = "Respond with a JSON object of the form {\"data\": [{...}]} where the inner object has exactly these keys, using null for anything the context does not evidence:\n" + fields.String()
	}

	var exampleBlock string
	if ex, ok := bestExample(query, e.examples); ok {
		exampleBlock = renderExampleJSON(s, ex)
	}
	request := "Extract the quantities below from the context above. " + shape
	return e.assemble(query, history, contextText, exampleBlock, request)
}

// historyBlock renders the last conversational turns, newest last. Citation
// turns are bookkeeping and stay out of the prompt.
func historyBlock(history []models.ChatTurn) string {
	var lines []string
	for _, t := range history {
		switch t.Role {
		case models.RoleHuman:
			lines = append(lines, "Human: "+t.Content)
		case models.RoleAI:
			lines = append(lines, "Assistant: "+t.Content)
		}
	}
	if len(lines) > historyWindow {
		lines = lines[len(lines)-historyWindow:]
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
