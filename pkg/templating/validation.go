package templating

import (
	"ftlvars/pkg/ftl"
)

// ValidateTemplate checks template syntax without executing it. Includes and
// imports are not followed.
//
// Example:
//
//	if err := templating.ValidateTemplate(src, templating.EngineTypeFTL); err != nil {
//	    log.Printf("invalid template: %v", err)
//	}
func ValidateTemplate(templateStr string, engineType EngineType) error {
	if engineType != EngineTypeFTL {
		return &UnsupportedEngineError{Name: engineType.String()}
	}

	if _, err := ftl.Parse("template", templateStr); err != nil {
		return NewCompilationError("template", templateStr, err)
	}
	return nil
}
