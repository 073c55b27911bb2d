// Package cli parses the rhea command line.
package cli

import (
	"fmt"

	"github.com/spf13/pflag"
)

type Command string

const (
	CommandRun        Command = "run"
	CommandStatus     Command = "status"
	CommandNewSession Command = "new-session"
	CommandReplay     Command = "replay"
	CommandExportLog  Command = "export-log"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:        {},
	CommandStatus:     {},
	CommandNewSession: {},
	CommandReplay:     {},
	CommandExportLog:  {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Format     string
	Output     string
	ShowHelp   bool
}

// Parse reads flags and the single command word from args.
func Parse(args []string) (Parsed, error) {
	fs := pflag.NewFlagSet("rhea", pflag.ContinueOnError)
	fs.Usage = func() {}

	configPath := fs.String("config", "", "config file path")
	format := fs.String("format", "json", "export format: json or csv")
	output := fs.StringP("output", "o", "", "write output to file instead of stdout")
	help := fs.BoolP("help", "h", false, "show help")
	showVersion := fs.Bool("version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	parsed := Parsed{
		Command:    CommandHelp,
		ConfigPath: *configPath,
		Format:     *format,
		Output:     *output,
		ShowHelp:   true,
	}

	if *showVersion {
		parsed.Command = CommandVersion
		parsed.ShowHelp = false
	}
	if *help {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		return parsed, nil
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", rest[0])
	}
	if len(rest) == 1 {
		cmd := Command(rest[0])
		if _, ok := validCommands[cmd]; !ok {
			return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
		}
		parsed.Command = cmd
		parsed.ShowHelp = cmd == CommandHelp
	}

	if parsed.Command == CommandExportLog && parsed.Format != "json" && parsed.Format != "csv" {
		return Parsed{}, fmt.Errorf("unknown export format: %s", parsed.Format)
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  run          Start the voice command daemon
  status       Print the running daemon's state
  new-session  Start a new voice log session in the running daemon
  replay       Run stored voice fixtures through the parser and score them
  export-log   Export the voice log (--format json|csv, -o FILE)
  doctor       Run configuration and environment checks
  version      Print version information
  help         Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/rhea/config.conf)
  --format FMT    Export format for export-log: json or csv (default json)
  -o, --output    Write export to a file instead of stdout
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
