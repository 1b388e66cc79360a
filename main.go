// pmt — Paradox Mod Translator: LLM-backed translation of Paradox mod
// localisation files with glossary-enforced terminology.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pmt/config"
	"pmt/glossary"
	"pmt/i18n"
	"pmt/report"
	"pmt/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

// colorize is true when stderr is a terminal.
var colorize = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

func logTag(color, tag, format string, args ...any) {
	if colorize {
		fmt.Fprintf(os.Stderr, color+tag+colorReset+" "+format+"\n", args...)
		return
	}
	fmt.Fprintf(os.Stderr, tag+" "+format+"\n", args...)
}

func logInfo(format string, args ...any)    { logTag(colorBlue, "[INFO]", format, args...) }
func logSuccess(format string, args ...any) { logTag(colorGreen, "[OK]", format, args...) }
func logWarning(format string, args ...any) { logTag(colorYellow, "[WARN]", format, args...) }
func logError(format string, args ...any)   { logTag(colorRed, "[ERROR]", format, args...) }

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pmt",
		Short: "Paradox Mod Translator: LLM translation for mod localisation files",
		Long: `pmt — Paradox Mod Translator.

Translates Paradox mod localisation files (l_english.yml and friends) into
the other supported game languages through an OpenAI-compatible LLM API,
keeping game markup (£icons£, $variables$, §color codes§) intact and
enforcing terminology through JSON glossaries.

Commands:
  translate   Run the translation tasks of a TOML task file
  validate    Check existing translations against their source files
  check-api   Verify the API key configuration
  version     Show version information

The API key is read from PMT_API_KEY or OPENAI_API_KEY, optionally via a
.env file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTranslateCmd(),
		newValidateCmd(),
		newCheckAPICmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// translate (run the tasks of a task file)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		concurrent bool
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "translate <taskfile>",
		Short: "Run the translation tasks of a TOML task file",
		Long: `Run every [[task]] of the given TOML task file: slice the source
localisation files, translate each slice, and write the results under
<localisation_dir>/<target_lang>/replace/.

Slice failures are retried and, once retries are exhausted, recorded; the
affected entries keep their source text so no key is ever lost. Only
configuration, glossary and authentication problems abort the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), args[0], concurrent, reportPath)
		},
	}

	cmd.Flags().BoolVar(&concurrent, "concurrent", false, "Send slices through the configured worker pool instead of one at a time")
	cmd.Flags().StringVar(&reportPath, "report", "", "Also write a YAML run report to this path")

	return cmd
}

func runTranslate(ctx context.Context, taskPath string, concurrent bool, reportPath string) error {
	settings, tasks, err := config.LoadTaskFile(taskPath)
	if err != nil {
		return err
	}
	apiKey, err := config.LoadAPIKey()
	if err != nil {
		return err
	}

	logInfo(i18n.T("Using model %s at %s"), settings.Model, settings.APIBase)
	if concurrent {
		logInfo(i18n.T("Concurrent mode: %d workers"), settings.Concurrency)
	}

	rep := report.New()
	runner := &translate.Runner{
		Settings:   settings,
		Sender:     translate.NewClient(settings, apiKey),
		Concurrent: concurrent,
		Logf:       logInfo,
		Warnf:      logWarning,
		Report:     rep,
	}

	var runErr error
	for i, task := range tasks {
		logInfo(i18n.T("Task %d/%d: %s -> %v"), i+1, len(tasks), task.SourceLang, task.TargetLangs)
		if err := runner.RunTask(ctx, task); err != nil {
			runErr = err
			break
		}
	}

	rep.Render(os.Stderr)
	if reportPath != "" {
		if err := rep.WriteYAML(reportPath); err != nil {
			logWarning("%v", err)
		} else {
			logInfo(i18n.T("Report written to %s"), reportPath)
		}
	}

	if runErr != nil {
		return runErr
	}
	if rep.HasFailures() {
		logWarning(i18n.T("Some slices failed; their entries keep the source text"))
	} else {
		logSuccess(i18n.T("All tasks completed"))
	}
	return nil
}

// ---------------------------------------------------------------------------
// validate (offline check of existing translations)
// ---------------------------------------------------------------------------

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <taskfile>",
		Short: "Check existing translations against their source files",
		Long: `Check, without any API calls, that every source file of every task has a
translated counterpart per target language, that no key is missing, and
that game markers survived translation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tasks, err := config.LoadTaskFile(args[0])
			if err != nil {
				return err
			}

			total := 0
			for _, task := range tasks {
				issues, err := translate.Validate(task)
				if err != nil {
					return err
				}
				for _, issue := range issues {
					logWarning("%s", issue)
				}
				total += len(issues)
			}

			if total > 0 {
				return fmt.Errorf(i18n.N("%d issue found", "%d issues found", total), total)
			}
			logSuccess(i18n.T("All translations are consistent"))
			return nil
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// check-api (verify key configuration)
// ---------------------------------------------------------------------------

func newCheckAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-api",
		Short: "Verify the API key configuration",
		Long:  `Check that an API key is available via PMT_API_KEY, OPENAI_API_KEY or .env.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.LoadAPIKey()
			if err != nil {
				return err
			}
			logSuccess(i18n.T("API key configured: %s"), config.MaskKey(key))
			logInfo(i18n.T("Supported languages: %v"), glossary.Languages[:])
			return nil
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pmt version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}
