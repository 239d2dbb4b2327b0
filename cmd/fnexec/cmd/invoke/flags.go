package invoke

import (
	"github.com/dennishilgert/fnexec/pkg/flags"
)

type commandFlags struct {
	SpecPath   string
	SourcePath string
	Language   string
	EntryPoint string
	Schema     string
	Arguments  string
	TimeoutMs  int64
}

type parsedFlags struct {
	cmdFlags *commandFlags
	parser   *flags.FlagParser
}

func ParseFlags() *parsedFlags {
	var f commandFlags

	parser := flags.NewFlagParser("invoke")
	parser.FlagSet().StringVar(&f.SpecPath, "spec", "", "Path to a JSON function spec")
	parser.FlagSet().StringVar(&f.SourcePath, "source", "", "Path to the function source when no spec is given")
	parser.FlagSet().StringVar(&f.Language, "language", "", "Language of the source, detected from the file extension when empty")
	parser.FlagSet().StringVar(&f.EntryPoint, "entry-point", "", "Function to call, the language default when empty")
	parser.FlagSet().StringVar(&f.Schema, "schema", "", "JSON schema for the arguments, @file reads it from a file")
	parser.FlagSet().StringVar(&f.Arguments, "args", "{}", "JSON object of arguments, @file reads a file and - reads stdin")
	parser.FlagSet().Int64Var(&f.TimeoutMs, "timeout-ms", 0, "Timeout in milliseconds, the configured default when zero")

	return &parsedFlags{
		cmdFlags: &f,
		parser:   parser,
	}
}

func (p *parsedFlags) CommandFlags() *commandFlags {
	return p.cmdFlags
}

func (p *parsedFlags) FlagSet() *flags.FlagParser {
	return p.parser
}
