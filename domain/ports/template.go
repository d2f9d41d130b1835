package ports

// TemplateEngine expands placeholders in a script manifest before it is
// parsed. Values are reachable as {{.config.key}}.
type TemplateEngine interface {
	Render(raw []byte, config map[string]interface{}) ([]byte, error)
}
