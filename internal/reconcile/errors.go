package reconcile

import (
	"errors"
	"fmt"

	"github.com/livefir/livetree/internal/vdom"
)

var (
	// ErrDuplicateKey reports two siblings sharing a reconciliation key.
	ErrDuplicateKey = errors.New("duplicate sibling key")
	// ErrMissingTag reports an element node with an empty tag.
	ErrMissingTag = errors.New("element missing tag")
)

// StructuralError describes malformed tree input. The reconciler never
// resolves these by heuristics; the render attempt for the component
// fails as a whole.
type StructuralError struct {
	Path vdom.Path
	Key  string
	err  error
}

func (e *StructuralError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("structural error at path %q: %v %q", e.Path, e.err, e.Key)
	}
	return fmt.Sprintf("structural error at path %q: %v", e.Path, e.err)
}

func (e *StructuralError) Unwrap() error { return e.err }

// Validate checks a tree for structural errors: every element carries a
// tag and no two siblings share a key.
func Validate(root vdom.Node) error {
	return validate(root, vdom.RootPath())
}

func validate(n vdom.Node, path vdom.Path) error {
	el, ok := n.(*vdom.Element)
	if !ok {
		return nil
	}
	if el.Tag == "" {
		return &StructuralError{Path: path, err: ErrMissingTag}
	}
	seen := make(map[string]bool)
	for i, child := range el.Children {
		if key := vdom.Key(child); key != "" {
			if seen[key] {
				return &StructuralError{Path: path, Key: key, err: ErrDuplicateKey}
			}
			seen[key] = true
		}
		if err := validate(child, path.Child(i)); err != nil {
			return err
		}
	}
	return nil
}
