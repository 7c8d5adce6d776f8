package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/mcpserver"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Scene   string
	Journal string
	Args    string
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <tool>",
		Short: "Run one tool call against a scene",
		Long: `Load a scene, run a single tool call on the host loop and print the
response. Use --args - to read the arguments from stdin.

Exit codes:
  0 - every element succeeded
  1 - the request ran but some element failed, or it was rejected
  2 - command error (bad scene, undecodable arguments)

Example:
  bimbridge invoke operate_element_visibility --scene office.yaml \
    --args '{"data":{"elementIds":[12],"visibilityAction":"Hide"}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeTool(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scene, "scene", "", "scene file to load (required)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (overrides config)")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "tool arguments as JSON, or - for stdin")
	_ = cmd.MarkFlagRequired("scene")

	return cmd
}

func invokeTool(opts *InvokeOptions, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tool, err := ir.ParseTool(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown tool", err)
	}

	args, err := readArgs(opts.Args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.RootOptions, cfg, formatter.GetErrWriter())
	if err != nil {
		return err
	}

	journalPath := cfg.Journal
	if opts.Journal != "" {
		journalPath = opts.Journal
	}
	st, err := openJournal(journalPath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := startRuntime(ctx, runtimeOptions{
		scenePath: opts.Scene,
		cfg:       cfg,
		journal:   st,
		logger:    logger,
	})
	if err != nil {
		return err
	}

	formatter.VerboseLog("Invoking %s on %s", tool, opts.Scene)
	resp, decodeErr := mcpserver.New(rt.bridge, mcpserver.WithLogger(logger)).Handle(ctx, tool, args)

	if err := rt.stop(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "host loop error", err)
	}

	if decodeErr != nil {
		if err := formatter.Error(CodeDecode, decodeErr.Error(), resp); err != nil {
			return err
		}
		return WrapExitError(ExitCommandError, "invalid tool arguments", decodeErr)
	}

	if err := outputResponse(formatter, resp); err != nil {
		return err
	}
	if !resp.Success {
		return NewExitError(ExitFailure, resp.Message)
	}
	return nil
}

// readArgs validates the --args JSON. "-" reads it from in.
func readArgs(raw string, in io.Reader) ([]byte, error) {
	data := []byte(raw)
	if raw == "-" {
		var err error
		if data, err = io.ReadAll(in); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read args from stdin", err)
		}
	}
	if !json.Valid(data) {
		return nil, NewExitError(ExitCommandError, "invalid --args JSON")
	}
	return data, nil
}

func outputResponse(f *OutputFormatter, resp ir.Response) error {
	if f.Format == "json" {
		return f.Success(resp)
	}

	w := f.Writer
	fmt.Fprintln(w, resp.Message)
	for _, id := range resp.Response.SuccessfulElements {
		fmt.Fprintf(w, "  ✓ %d\n", id)
	}
	for _, fr := range resp.Response.FailedElements {
		if fr.Item > 0 {
			fmt.Fprintf(w, "  ✗ item %d: %s\n", fr.Item, fr.Reason)
			continue
		}
		fmt.Fprintf(w, "  ✗ %d: %s\n", fr.ElementID, fr.Reason)
	}
	if f.Verbose && len(resp.Response.Details) > 0 {
		details, err := json.MarshalIndent(resp.Response.Details, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  details: %s\n", details)
	}
	return nil
}
