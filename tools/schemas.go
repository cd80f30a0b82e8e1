package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/rag"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/schema"
)

// SchemaField is the wire form of one extraction target.
type SchemaField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Label       string `json:"label,omitempty"`
}

type SaveSchemaQuery struct {
	Name   string        `json:"name"`
	Fields []SchemaField `json:"fields"`
}

type SaveSchemaResponse struct {
	Name   string `json:"name"`
	Fields int    `json:"fields"`
}

func SaveSchemaTool() *mcp.Tool {
	inputschema, err := jsonschema.For[SaveSchemaQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "save-schema",
		Description: "Define and store a custom extraction schema. Field names must be snake_case; type is one of string, integer or number (default string). The stored schema can be activated with use-schema.",
		InputSchema: inputschema,
	}
}

func SaveSchemaToolHandler(ctx context.Context, req *mcp.CallToolRequest, query SaveSchemaQuery, store *schema.Store, log logger.Logger) (*mcp.CallToolResult, *SaveSchemaResponse, error) {
	log.Info("save-schema tool called")

	specs := make([]schema.FieldSpec, 0, len(query.Fields))
	for _, f := range query.Fields {
		kind, err := parseKind(f.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		specs = append(specs, schema.FieldSpec{
			Name:        f.Name,
			Description: f.Description,
			Kind:        kind,
			Label:       f.Label,
		})
	}

	sc, err := schema.New(query.Name, specs)
	if err != nil {
		log.Error("save-schema tool failed: %v", err)
		return nil, nil, err
	}
	if err := store.Save(ctx, sc); err != nil {
		log.Error("save-schema tool failed: %v", err)
		return nil, nil, err
	}
	return nil, &SaveSchemaResponse{Name: sc.Name(), Fields: len(sc.Fields())}, nil
}

type ListSchemasQuery struct{}

type ListSchemasResponse struct {
	Active  string   `json:"active"`
	Schemas []string `json:"schemas"`
}

func ListSchemasTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ListSchemasQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "list-schemas",
		Description: "List the stored extraction schemas and the currently active one.",
		InputSchema: inputschema,
	}
}

func ListSchemasToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ListSchemasQuery, store *schema.Store, assistant *rag.Assistant, log logger.Logger) (*mcp.CallToolResult, *ListSchemasResponse, error) {
	log.Info("list-schemas tool called")
	names, err := store.List(ctx)
	if err != nil {
		log.Error("list-schemas tool failed: %v", err)
		return nil, nil, err
	}
	if names == nil {
		names = []string{}
	}
	return nil, &ListSchemasResponse{Active: assistant.Schema().Name(), Schemas: names}, nil
}

type UseSchemaQuery struct {
	Name string `json:"name"`
}

type UseSchemaResponse struct {
	Active string `json:"active"`
}

func UseSchemaTool() *mcp.Tool {
	inputschema, err := jsonschema.For[UseSchemaQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "use-schema",
		Description: "Activate a stored extraction schema for subsequent queries. The built-in schema is named memristor_extraction.",
		InputSchema: inputschema,
	}
}

func UseSchemaToolHandler(ctx context.Context, req *mcp.CallToolRequest, query UseSchemaQuery, store *schema.Store, assistant *rag.Assistant, log logger.Logger) (*mcp.CallToolResult, *UseSchemaResponse, error) {
	log.Info("use-schema tool called")

	if query.Name == schema.Default().Name() {
		assistant.SetSchema(schema.Default())
		return nil, &UseSchemaResponse{Active: query.Name}, nil
	}

	sc, err := store.Load(ctx, query.Name)
	if err != nil {
		log.Error("use-schema tool failed: %v", err)
		return nil, nil, err
	}
	assistant.SetSchema(sc)
	return nil, &UseSchemaResponse{Active: sc.Name()}, nil
}

func parseKind(t string) (schema.Kind, error) {
	switch t {
	case "", "string":
		return schema.String, nil
	case "integer", "int":
		return schema.Int, nil
	case "number", "float":
		return schema.Float, nil
	}
	return schema.String, fmt.Errorf("unknown field type %q", t)
}
