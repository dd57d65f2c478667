package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"golang.org/x/exp/slog"

	"ytbucket"
)

// globalOptions are accepted by every command. Zero values leave the
// config file and environment untouched.
type globalOptions struct {
	Config            string   `short:"c" long:"config" description:"Config file (YAML or JSON)"`
	Debug             bool     `long:"debug" description:"Enable debug logging"`
	APIKey            string   `long:"api-key" description:"YouTube Data API key"`
	Playlist          string   `short:"p" long:"playlist" description:"Playlist id or URL"`
	Feed              bool     `long:"feed" description:"Read the public Atom feed instead of the Data API"`
	MaxAttempts       int      `long:"max-attempts" description:"Attempts per remote call"`
	RequestsPerSecond float64  `long:"rps" description:"Maximum Data API requests per second"`
	DescriptionLimit  int      `long:"description-limit" description:"Truncate descriptions to this many characters"`
	Columns           []string `long:"column" description:"Output column, repeat for each (default: all 13)"`
}

type app struct {
	ctx    context.Context
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{ctx: ctx, stdout: stdout, stderr: stderr}
	parser := newParser(a)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, flagsErr.Message)
			return 0
		}
		if errors.Is(err, ytbucket.ErrFetchExhausted) {
			fmt.Fprintf(stderr, "could not retrieve playlist videos: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newParser(a *app) *flags.Parser {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "ytbucket"
	parser.LongDescription = "Sync a YouTube playlist into duration-bucketed tables."

	parser.AddCommand("sync",
		"Fetch the playlist and write every configured sink",
		"Lists the playlist, resolves video details, groups videos by duration and "+
			"writes the result to the JSON, CSV, Google Sheets and SQL sinks that are configured.",
		&syncCommand{app: a})
	parser.AddCommand("list",
		"Print the bucketed playlist",
		"Runs a sync without sinks and prints the rows grouped by duration bucket.",
		&listCommand{app: a})
	parser.AddCommand("export",
		"Copy a spreadsheet range to local files",
		"Reads an A1 range (default AllVideos!A1:M) from the spreadsheet and writes it as JSON and/or CSV.",
		&exportCommand{app: a})
	return parser
}

// setupLogger installs the text handler on stderr.
func (a *app) setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}
