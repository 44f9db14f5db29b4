// Package clipboard copies transcript text to the system clipboard
// using robotgo.
package clipboard

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Writer copies text to the system clipboard.
type Writer struct{}

// New returns a clipboard Writer.
func New() *Writer { return &Writer{} }

// Copy places text on the system clipboard. Callers treat failures as
// non-fatal.
func (w *Writer) Copy(text string) error {
	if text == "" {
		return nil
	}
	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: write: %w", err)
	}
	return nil
}
