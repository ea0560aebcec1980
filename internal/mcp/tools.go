package mcp

// Tool represents a command exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func projectRootProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path of the project root; the project id is its final path segment",
	}
}

// GetToolDefinitions returns all tool definitions
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "analyze",
			Description: "Analyze a project and return snapshot summary counts plus cache status",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_root": projectRootProp(),
				},
				"required": []string{"project_root"},
			},
		},
		{
			Name:        "definitions",
			Description: "List extracted var definitions, optionally filtered by namespace",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_root": projectRootProp(),
					"namespace": map[string]interface{}{
						"type":        "string",
						"description": "Only return definitions in this namespace",
					},
				},
				"required": []string{"project_root"},
			},
		},
		{
			Name:        "calls",
			Description: "List call edges, optionally filtered by caller namespace and function",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_root": projectRootProp(),
					"namespace": map[string]interface{}{
						"type":        "string",
						"description": "Only return edges whose caller is in this namespace",
					},
					"function": map[string]interface{}{
						"type":        "string",
						"description": "Only return edges whose caller has this name",
					},
				},
				"required": []string{"project_root"},
			},
		},
		{
			Name:        "ns-graph",
			Description: "List the namespace dependency graph",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_root": projectRootProp(),
				},
				"required": []string{"project_root"},
			},
		},
		{
			Name:        "callers",
			Description: "List call edges whose callee matches the given function and namespace",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_root": projectRootProp(),
					"namespace": map[string]interface{}{
						"type":        "string",
						"description": "Callee namespace to match",
					},
					"function": map[string]interface{}{
						"type":        "string",
						"description": "Callee name to match",
					},
				},
				"required": []string{"project_root"},
			},
		},
		{
			Name:        "references",
			Description: "List reference sites (file, row, caller) for a callee function",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_root": projectRootProp(),
					"namespace": map[string]interface{}{
						"type":        "string",
						"description": "Callee namespace to match",
					},
					"function": map[string]interface{}{
						"type":        "string",
						"description": "Callee name to match",
					},
				},
				"required": []string{"project_root"},
			},
		},
		{
			Name:        "sync",
			Description: "Transform the project's analysis into graph operations and push them to the knowledge-graph store",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_root": projectRootProp(),
					"project_id": map[string]interface{}{
						"type":        "string",
						"description": "Override the derived project id",
					},
					"scope": map[string]interface{}{
						"type":        "string",
						"description": "Project scope tag for the store; defaults to the project id",
					},
				},
				"required": []string{"project_root"},
			},
		},
		{
			Name:        "status",
			Description: "Report sync-bridge availability and on-disk cache status",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "invalidate",
			Description: "Clear the in-process analysis memoizer so the next command re-reads the cache",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}
