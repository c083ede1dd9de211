package stdlib

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

// read() → next input line without its line ending, nil at end of input
func stdlibRead(h *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	if len(args) != 0 {
		return nilValue, nil
	}
	line, err := h.In.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, &evaluator.RuntimeError{
				Code:    diagnostics.EIO,
				Message: fmt.Sprintf("read failed: %v", err),
			}
		}
		if line == "" {
			return nilValue, nil
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return evaluator.NewString(line), nil
}
