package diff

import (
	"fmt"

	"collabtext/pkg/errors"
)

// Op is a single edit against a text buffer. Positions and lengths are
// counted in runes.
type Op interface {
	// Apply returns text with the operation applied.
	Apply(text string) (string, error)
	String() string
}

// Insert represents the insertion of Text at Index.
type Insert struct {
	Index int
	Text  string
}

// Apply inserts op.Text at op.Index.
func (op Insert) Apply(text string) (string, error) {
	runes := []rune(text)
	if op.Index < 0 || op.Index > len(runes) {
		return "", errors.New("insert out of bounds: index %d, length %d", op.Index, len(runes))
	}
	return string(runes[:op.Index]) + op.Text + string(runes[op.Index:]), nil
}

func (op Insert) String() string {
	return fmt.Sprintf("insert(%d, %q)", op.Index, op.Text)
}

// Delete represents the removal of Length runes starting at Index.
type Delete struct {
	Index  int
	Length int
}

// Apply removes the deleted range from text.
func (op Delete) Apply(text string) (string, error) {
	runes := []rune(text)
	if op.Index < 0 || op.Length < 0 || op.Index+op.Length > len(runes) {
		return "", errors.New("delete out of bounds: range [%d, %d), length %d",
			op.Index, op.Index+op.Length, len(runes))
	}
	return string(runes[:op.Index]) + string(runes[op.Index+op.Length:]), nil
}

func (op Delete) String() string {
	return fmt.Sprintf("delete(%d, %d)", op.Index, op.Length)
}

// ApplyAll applies ops to text in order.
func ApplyAll(text string, ops []Op) (string, error) {
	for i, op := range ops {
		var err error
		if text, err = op.Apply(text); err != nil {
			return "", errors.WithContext(err, fmt.Sprintf("apply op %d", i))
		}
	}
	return text, nil
}
