// Command unzip extracts, tests, and lists ZIP archives.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"

	infozip "github.com/jopamo/infozip-utils"
)

func init() {
	// Set the HelpFlag to a name no one would guess so that `cli` does not
	// treat the archive argument after --help as a command name.
	// See: github.com/urfave/cli/issues/1809
	cli.HelpFlag = &cli.BoolFlag{
		Name:               "b7a9c3e1f2d4a6b8c0e2",
		DisableDefaultText: true,
	}
}

// logDiagnostics routes engine warnings to the standard logger.
type logDiagnostics struct{}

func (logDiagnostics) Warnf(format string, args ...any) {
	log.Printf("warning: "+format, args...)
}

// quietDiagnostics drops warnings when -q is given.
type quietDiagnostics struct{}

func (quietDiagnostics) Warnf(string, ...any) {}

// fixedPassword hands the engine a password given on the command line with
// -P, never prompting.
type fixedPassword struct {
	pwd []byte
}

func (p fixedPassword) GetPassword(string, infozip.PasswordScope) ([]byte, bool) {
	return p.pwd, len(p.pwd) > 0
}

func newUnzipApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Extract, test, and list ZIP archives.",
		Description: strings.Join([]string{
			"unzip(1) compatible extractor written in Go.",
			"http://github.com/jopamo/infozip-utils",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "list",
				Usage:              "list archive members without extracting",
				Aliases:            []string{"l"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "test",
				Usage:              "test archive integrity without writing files",
				Aliases:            []string{"t"},
				DisableDefaultText: true,
			},
			&cli.StringFlag{
				Name:    "exdir",
				Usage:   "extract into `DIR` instead of the current directory",
				Aliases: []string{"d"},
			},
			&cli.BoolFlag{
				Name:               "overwrite",
				Usage:              "overwrite existing files without prompting",
				Aliases:            []string{"o"},
				DisableDefaultText: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "use `PASSWORD` for encrypted members",
				Aliases: []string{"P"},
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Usage:   "exclude members matching `PATTERN`",
				Aliases: []string{"x"},
			},
			&cli.BoolFlag{
				Name:               "caseless",
				Usage:              "match patterns case-insensitively",
				Aliases:            []string{"C"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "quiet",
				Usage:              "suppress warnings",
				Aliases:            []string{"q"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "help",
				Usage:              "print this help text and exit",
				Aliases:            []string{"h"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"v"},
				DisableDefaultText: true,
			},
		},
		ArgsUsage:       "ARCHIVE [PATTERN]...",
		HideHelp:        true,
		HideHelpCommand: true,
		Action:          run,
	}
}

func run(c *cli.Context) error {
	if c.Bool("help") {
		if err := cli.ShowAppHelp(c); err != nil {
			return cli.Exit(err, int(infozip.ExitParam))
		}
		return nil
	}
	if c.Bool("version") {
		versionInfo := version.GetVersionInfo()
		fmt.Fprintf(c.App.Writer, "%s %s\n%s\n", c.App.Name, versionInfo.GitVersion, versionInfo.String())
		return nil
	}

	args := c.Args().Slice()
	if len(args) == 0 {
		return cli.Exit(fmt.Errorf("%s: missing archive argument", c.App.Name), int(infozip.ExitParam))
	}
	archive := args[0]

	opts := infozip.Options{
		Dest:                 c.String("exdir"),
		Include:              args[1:],
		Exclude:              c.StringSlice("exclude"),
		CaseInsensitiveMatch: c.Bool("caseless"),
		Diagnostics:          logDiagnostics{},
	}
	if c.Bool("quiet") {
		opts.Diagnostics = quietDiagnostics{}
	}
	if c.Bool("overwrite") {
		opts.Overwrite = infozip.AlwaysOverwrite{}
	}
	if pwd := c.String("password"); pwd != "" {
		opts.PasswordProvider = fixedPassword{pwd: []byte(pwd)}
	}

	switch {
	case c.Bool("list"):
		opts.Mode = infozip.ModeList
	case c.Bool("test"):
		opts.Mode = infozip.ModeTest
	default:
		opts.Mode = infozip.ModeExtract
	}

	result, err := infozip.Run(archive, opts)
	if opts.Mode == infozip.ModeList {
		infozip.PrintListing(c.App.Writer, result.Entries)
	}
	if result.Code != infozip.ExitOK {
		if err == nil {
			err = fmt.Errorf("%s: completed with warnings", archive)
		}
		return cli.Exit(err, int(result.Code))
	}
	return nil
}
