package health

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"collabtext/cmd/util"
	"collabtext/pkg/docs"
	"collabtext/pkg/errors"
)

// New creates a new `health` command.
func New(flags *util.GlobalFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the document server is reachable",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			cfg, err := flags.LoadConfig()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := Main(ctx, docs.NewClient(cfg.Server), cfg.Server, os.Stdout); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the server.")
	return cmd
}

// Main checks the health of the server at origin.
func Main(ctx context.Context, client *docs.Client, origin string, out io.Writer) error {
	if err := client.Health(ctx); err != nil {
		return errors.NewFriendlyError("The server at %s is not healthy: %s", origin, err)
	}
	fmt.Fprintf(out, "%s is healthy\n", origin)
	return nil
}
