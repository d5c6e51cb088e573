package snapshot

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks that doc has both top-level fields, a known edge style and
// uniquely identified, typed nodes.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrMalformed)
	}

	err := validate.Struct(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, formatValidationError(err))
	}

	seen := make(map[string]struct{}, len(doc.Flow.Nodes))
	for _, n := range doc.Flow.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformed, n.ID)
		}

		seen[n.ID] = struct{}{}
	}

	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	e := verrs[0]

	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", e.Namespace())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", e.Namespace(), e.Param(), e.Value())
	default:
		return fmt.Errorf("%s failed %s", e.Namespace(), e.Tag())
	}
}
