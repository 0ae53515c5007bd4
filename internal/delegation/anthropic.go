package delegation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"

	"github.com/moolen/medidesk/internal/logging"
)

// DefaultAnthropicModel is used when the anthropic provider has no model set.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

const defaultAnthropicMaxTokens = 1024

// AnthropicGenerator serves genai requests through the Anthropic Messages
// API. Function declarations become tools, and a forced function-calling
// mode becomes tool_choice "any" with a single tool use.
type AnthropicGenerator struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropicGenerator creates a generator authenticated with apiKey.
func NewAnthropicGenerator(apiKey string, opts ...option.RequestOption) *AnthropicGenerator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicGenerator{
		client:    anthropic.NewClient(opts...),
		maxTokens: defaultAnthropicMaxTokens,
	}
}

// AnthropicConnector returns a ConnectFunc whose credential is an Anthropic
// API key. Extra options are applied to every client it builds.
func AnthropicConnector(opts ...option.RequestOption) ConnectFunc {
	return func(_ context.Context, credential string) (ContentGenerator, error) {
		return NewAnthropicGenerator(credential, opts...), nil
	}
}

// GenerateContent implements ContentGenerator.
func (g *AnthropicGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: g.maxTokens,
		Messages:  convertContents(contents),
	}

	if system := systemText(config); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if tools := convertTools(config); len(tools) > 0 {
		params.Tools = tools
		if forcesCall(config) {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{
				OfAny: &anthropic.ToolChoiceAnyParam{
					DisableParallelToolUse: anthropic.Bool(true),
				},
			}
		}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}
	return convertMessage(resp), nil
}

func systemText(config *genai.GenerateContentConfig) string {
	if config == nil || config.SystemInstruction == nil {
		return ""
	}
	var parts []string
	for _, part := range config.SystemInstruction.Parts {
		if part != nil && part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func convertContents(contents []*genai.Content) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}
		var texts []string
		for _, part := range content.Parts {
			if part != nil && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		if len(texts) == 0 {
			continue
		}
		block := anthropic.NewTextBlock(strings.Join(texts, "\n"))
		if content.Role == genai.RoleModel {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return messages
}

func convertTools(config *genai.GenerateContentConfig) []anthropic.ToolUnionParam {
	if config == nil {
		return nil
	}
	var tools []anthropic.ToolUnionParam
	for _, tool := range config.Tools {
		if tool == nil {
			continue
		}
		for _, fn := range tool.FunctionDeclarations {
			if fn == nil {
				continue
			}
			schema := schemaToMap(fn.Parameters)
			required, _ := schema["required"].([]string)
			tools = append(tools, anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        fn.Name,
					Description: anthropic.String(fn.Description),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: schema["properties"],
						Required:   required,
					},
				},
			})
		}
	}
	return tools
}

func forcesCall(config *genai.GenerateContentConfig) bool {
	return config != nil && config.ToolConfig != nil &&
		config.ToolConfig.FunctionCallingConfig != nil &&
		config.ToolConfig.FunctionCallingConfig.Mode == genai.FunctionCallingConfigModeAny
}

// schemaToMap renders a genai schema as JSON Schema.
func schemaToMap(schema *genai.Schema) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	result := map[string]any{"type": schemaType(schema.Type)}
	if schema.Description != "" {
		result["description"] = schema.Description
	}
	if len(schema.Properties) > 0 {
		props := make(map[string]any, len(schema.Properties))
		for name, prop := range schema.Properties {
			props[name] = schemaToMap(prop)
		}
		result["properties"] = props
	}
	if len(schema.Required) > 0 {
		result["required"] = schema.Required
	}
	if schema.Items != nil {
		result["items"] = schemaToMap(schema.Items)
	}
	if len(schema.Enum) > 0 {
		result["enum"] = schema.Enum
	}
	return result
}

func schemaType(t genai.Type) string {
	switch t {
	case genai.TypeString:
		return "string"
	case genai.TypeNumber:
		return "number"
	case genai.TypeInteger:
		return "integer"
	case genai.TypeBoolean:
		return "boolean"
	case genai.TypeArray:
		return "array"
	default:
		return "object"
	}
}

// convertMessage turns the reply into a single genai candidate. A reply
// without content blocks yields no candidates.
func convertMessage(resp *anthropic.Message) *genai.GenerateContentResponse {
	out := &genai.GenerateContentResponse{}
	if resp == nil || len(resp.Content) == 0 {
		return out
	}

	parts := make([]*genai.Part, 0, len(resp.Content))
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			parts = append(parts, genai.NewPartFromText(block.Text))
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					logging.GetLogger("delegation.anthropic").DebugWithFields("Ignoring malformed tool_use input",
						logging.Field("tool", block.Name),
						logging.Field("error", err.Error()))
					args = nil
				}
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: block.ID, Name: block.Name, Args: args},
			})
		}
	}

	out.Candidates = []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
	}}
	return out
}
