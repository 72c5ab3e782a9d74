package main

import (
	"flag"
	"fmt"
	"gem/internal/evaluator"
	"gem/internal/lexer"
	"gem/internal/object"
	"gem/internal/parser"
	"gem/internal/repl"
	"gem/internal/util"
	"log/slog"
	"os"
	"path/filepath"
)

const DefaultConfigPath = "gem.toml"

var (
	// Version is the current version of the gem binary, set at build time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// config vars
	configPath string
	// logging
	logLevel string
	logFile  string
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Path to an optional TOML configuration file")
	// log config
	flag.StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {

	flag.Parse()

	config := util.Configuration{
		Version:   Version,
		BuildDate: BuildDate,
		Commit:    Commit,
		GemHome:   os.Getenv("GEM_HOME"),
		LogLevel:  logLevel,
		LogFile:   logFile,
	}
	if err := util.LoadFile(configPath, &config); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config '%s': %v\n", configPath, err)
		os.Exit(1)
	}
	// flags passed explicitly win over file values
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			config.LogLevel = logLevel
		case "log-file":
			config.LogFile = logFile
		}
	})

	// Creates a new Logger that uses a JSONHandler to write to standard output
	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(config.LogLevel),
	}
	logWriter := configureLogWriter(config.LogFile)
	defaultLogger := slog.New(slog.NewJSONHandler(logWriter, loggerOptions))
	slog.SetDefault(defaultLogger)

	if version {
		printVersion()
		return
	}

	if help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Printf("Welcome to gem v%s. Type in commands:\n", config.Version)
		repl.Start(os.Stdin, os.Stdout)
		return
	}

	runFile(flag.Arg(0), flag.Args()[1:])
}

// runFile parses and runs a script, passing the remaining command-line
// arguments to its main function as an array of strings.
func runFile(path string, args []string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read '%s': %v\n", path, err)
		os.Exit(1)
	}

	source := string(src)
	l := lexer.New(source)
	p := parser.New(l, source)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		fmt.Fprintf(os.Stderr, "parser errors in %s:\n", path)
		for _, msg := range p.Errors() {
			fmt.Fprintf(os.Stderr, "\t%s\n", msg)
		}
		os.Exit(1)
	}

	elements := make([]object.Value, 0, len(args))
	for _, arg := range args {
		elements = append(elements, &object.String{Value: arg})
	}

	slog.Info("running script", slog.String("path", path), slog.Int("args", len(args)))

	runtime := evaluator.New(os.Stdout)
	result := runtime.Run(program, &object.Array{Elements: elements})
	if evalErr, ok := result.(*object.Error); ok {
		slog.Error("evaluation failed",
			slog.String("kind", string(evalErr.Kind)),
			slog.String("message", evalErr.Message))
		fmt.Fprintln(os.Stderr, evalErr.Inspect())
		os.Exit(1)
	}
}

func configureLogWriter(logFile string) *os.File {
	var logWriter *os.File
	var err error
	if logFile != "" {
		// Create parent directories if they don't exist
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
			return os.Stderr
		}
		logWriter, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
			logWriter = os.Stderr
		}
	} else {
		logWriter = os.Stderr
	}
	return logWriter
}

func printVersion() {

	fmt.Printf("gem version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: gem [options] [filename [args...]]

Options:
  -config <path>     Path to an optional TOML configuration file. Default is 'gem.toml'.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default is 'error'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Details:
This is the Gem programming language.

Examples:
  gem -log-level=debug          Start the REPL with debug logging enabled
  gem myfile.gem                Execute the provided Gem file
  gem myfile.gem arg1 arg2      Execute the file with command-line arguments

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
