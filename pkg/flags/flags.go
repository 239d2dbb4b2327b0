package flags

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

type FlagParser struct {
	flagSet *pflag.FlagSet
}

// NewFlagParser creates a sorted flag set for a command.
func NewFlagParser(name string) *FlagParser {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.SortFlags = true

	return &FlagParser{
		flagSet: fs,
	}
}

func (f *FlagParser) FlagSet() *pflag.FlagSet {
	return f.flagSet
}

// ReadValue resolves a flag value that may reference its content. "@path"
// reads the file and "-" reads stdin; anything else is returned as is.
func ReadValue(value string, stdin io.Reader) (string, error) {
	switch {
	case value == "-":
		content, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(content), nil
	case strings.HasPrefix(value, "@"):
		content, err := os.ReadFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.TrimPrefix(value, "@"), err)
		}
		return string(content), nil
	}
	return value, nil
}
