package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"briefsearch/internal/engine"
	"briefsearch/internal/search"
	"briefsearch/internal/writeout"

	"github.com/spf13/cobra"
)

const (
	exitOK        = 0
	exitNoResults = 1
	exitUsage     = 2
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string {
	return e.msg
}

var (
	flagJSON       bool
	flagMaxResults int
	flagProvider   string
	flagSafeSearch bool
)

var rootCmd = &cobra.Command{
	Use:   "briefsearch [topic...]",
	Short: "Search the web for a topic and write a cited summary",
	Long: `Searches the web for a topic, reads the top results that robots.txt
allows, and writes a short summary paragraph with its source URLs to
<output-dir>/<topic>_<date>.txt.

When no topic is given on the command line it is read from stdin.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "print the response as JSON instead of writing a file")
	rootCmd.Flags().IntVarP(&flagMaxResults, "max-results", "n", 15, "number of search results to consider (1-30)")
	rootCmd.Flags().StringVarP(&flagProvider, "provider", "p", string(search.ProviderAuto), "search provider: auto, duckduckgo, google_cse, wikipedia or brave")
	rootCmd.Flags().BoolVar(&flagSafeSearch, "safe-search", true, "filter explicit results")
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(rootCmd.ErrOrStderr(), exit.msg)
			}
			return exit.code
		}
		fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
		return exitNoResults
	}
	return exitOK
}

func runRoot(cmd *cobra.Command, args []string) error {
	query, err := readQuery(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	settings := engine.Settings{
		MaxResults: flagMaxResults,
		SafeSearch: flagSafeSearch,
		Provider:   search.ProviderName(flagProvider),
	}
	return runQuery(cmd.Context(), cmd.OutOrStdout(), a.engine, query, settings, outputOptions{
		dir:   a.cfg.OutputDir,
		width: a.cfg.OutputWidth,
		json:  flagJSON,
		now:   time.Now,
	})
}

// readQuery joins args, or prompts on stdin when there are none.
func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return "", exitError{code: exitUsage, msg: "Empty query."}
		}
		return query, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Enter a topic to research: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read query: %w", err)
	}
	query := strings.TrimSpace(line)
	if query == "" {
		return "", exitError{code: exitUsage, msg: `Usage: briefsearch "your topic"`}
	}
	return query, nil
}

type searcher interface {
	Run(ctx context.Context, query string, settings engine.Settings) engine.Response
}

type outputOptions struct {
	dir   string
	width int
	json  bool
	now   func() time.Time
}

// runQuery runs one search and writes its output. Runs that end without
// results still write their fallback paragraph but exit with exitNoResults.
func runQuery(ctx context.Context, out io.Writer, s searcher, query string, settings engine.Settings, opts outputOptions) error {
	resp := s.Run(ctx, query, settings)

	code := exitOK
	switch err := resp.Err(); {
	case err == nil:
	case errors.Is(err, engine.ErrEmptyQuery):
		return exitError{code: exitUsage, msg: resp.Error}
	default:
		code = exitNoResults
	}

	if opts.json {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	} else {
		path, err := writeout.Write(opts.dir, query, resp.Summary, resp.Sources, opts.width, opts.now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved to %s\n", path)
	}

	if code != exitOK {
		return exitError{code: code}
	}
	return nil
}
