// Package templating manages named templates for the ftl engine.
//
// It owns template lookup (in-memory, directory and remote loaders), a
// compile cache shared by renders and analyses, typed errors, readable
// error formatting and output post-processing.
package templating

// EngineType represents the template language a TemplateEngine speaks.
type EngineType int

const (
	// EngineTypeFTL is the FreeMarker-style language implemented by pkg/ftl.
	EngineTypeFTL EngineType = iota
)

// String returns the string representation of the engine type.
func (e EngineType) String() string {
	switch e {
	case EngineTypeFTL:
		return "ftl"
	default:
		return "unknown"
	}
}

// ParseEngineType maps a configuration value to an EngineType.
func ParseEngineType(s string) (EngineType, error) {
	switch s {
	case "", "ftl", "freemarker":
		return EngineTypeFTL, nil
	default:
		return -1, &UnsupportedEngineError{Name: s}
	}
}
