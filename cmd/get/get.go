package get

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"collabtext/cmd/util"
	"collabtext/pkg/docs"
	"collabtext/pkg/errors"
)

const getTimeout = 15 * time.Second

// New creates a new `get` command.
func New(flags *util.GlobalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Print the current text of a document",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			cfg, err := flags.LoadConfig()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), getTimeout)
			defer cancel()
			if err := Main(ctx, docs.NewClient(cfg.Server), args[0], asJSON, os.Stdout); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the document as JSON, including its version.")
	return cmd
}

// Main fetches document id and writes it to out.
func Main(ctx context.Context, client *docs.Client, id string, asJSON bool, out io.Writer) error {
	doc, err := client.Get(ctx, id)
	if err != nil {
		var statusErr docs.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return errors.NewFriendlyError("Document %q does not exist.", id)
		}
		return err
	}

	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	}
	_, err = fmt.Fprintln(out, doc.Text)
	return err
}
