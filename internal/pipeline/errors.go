package pipeline

import "fmt"

// ConfigError marks a fatal configuration problem: an unmapped stage
// name or a missing required input field. Never retried; the asset's
// run aborts.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Msg
}

// UnsupportedLanguageError marks a detected language with no mapped
// service code or matching recognizer. Non-fatal: the affected stages
// resolve to NO_DATA.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q", e.Language)
}

// ExternalJobError marks a remote job that finished FAILED or STOPPED.
// It fails that category's branch while other categories keep their
// results; the service's message is preserved for the caller.
type ExternalJobError struct {
	Category string
	Message  string
}

func (e *ExternalJobError) Error() string {
	return fmt.Sprintf("external job failed (%s): %s", e.Category, e.Message)
}
