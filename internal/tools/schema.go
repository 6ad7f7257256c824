package tools

// NativeSchema renders a tool's schema in the flat {name, description,
// input_schema} shape most providers' native tool-use APIs expect.
func NativeSchema(t Tool) map[string]any {
	return map[string]any{
		"name":         t.Name(),
		"description":  t.Description(),
		"input_schema": t.InputSchema(),
	}
}

// OpenAIFunctionSchema wraps a tool's schema in the nested
// {"type":"function","function":{...}} shape OpenAI-compatible APIs
// expect.
func OpenAIFunctionSchema(t Tool) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  t.InputSchema(),
		},
	}
}

// ExportAll renders every registered tool's schema using render.
func ExportAll(r *Registry, render func(Tool) map[string]any) []map[string]any {
	names := r.Names()
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, render(r.Get(name)))
	}
	return out
}
