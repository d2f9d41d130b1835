package entities

// ValidationResult collects every problem found in a script manifest.
type ValidationResult struct {
	Errors []ValidationError
	Valid  bool
}

// ValidationError names the manifest field that failed and why.
type ValidationError struct {
	Field   string // struct namespace, or "inputs"/"outputs" for argument sections
	Message string
}
