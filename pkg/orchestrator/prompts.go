package orchestrator

import (
	"fmt"
	"strings"

	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/proxy/types"
)

const (
	parameterGatheringTemplate = "It seems I'm missing some information. Could you provide the following details: %s?"
	clarificationTemplate      = "I want to make sure I have the right details. Could you confirm or provide the following: %s?"
)

func parameterGatheringMessage(missing []config.Parameter) string {
	parts := make([]string, 0, len(missing))
	for _, p := range missing {
		if p.Description != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", p.Name, p.Description))
		} else {
			parts = append(parts, p.Name)
		}
	}
	return fmt.Sprintf(parameterGatheringTemplate, strings.Join(parts, ", "))
}

func clarificationMessage(fields []string) string {
	return fmt.Sprintf(clarificationTemplate, strings.Join(fields, ", "))
}

// ToolDefinition renders a target's parameter schema as an OpenAI tool.
func ToolDefinition(t *config.PromptTarget) types.Tool {
	properties := make(map[string]interface{}, len(t.Parameters))
	required := []string{}

	for _, p := range t.Parameters {
		prop := map[string]interface{}{}
		if p.Type != "" {
			prop["type"] = jsonSchemaType(p.Type)
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return types.Tool{
		Type: "function",
		Function: types.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// Short type names used in target configs.
func jsonSchemaType(t string) string {
	switch t {
	case "int", "integer":
		return "integer"
	case "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	case "str", "string":
		return "string"
	case "list", "array":
		return "array"
	case "dict", "object":
		return "object"
	default:
		return t
	}
}
