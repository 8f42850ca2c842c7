package create

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"collabtext/cmd/util"
	"collabtext/pkg/docs"
	"collabtext/pkg/errors"
	"collabtext/pkg/observe"
)

const createTimeout = 15 * time.Second

// New creates a new `create` command.
func New(flags *util.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create [title]",
		Short: "Create a new document and print its identifier",
		Args:  cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			title := "Untitled"
			if len(args) == 1 {
				title = args[0]
			}

			cfg, err := flags.LoadConfig()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), createTimeout)
			defer cancel()
			sink := observe.LogSink{Logger: log.StandardLogger()}
			if err := Main(ctx, docs.NewClient(cfg.Server), sink, clockwork.NewRealClock(), title, os.Stdout); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

// Main creates a document titled title and writes its identifier to out.
// Failures are reported to sink and returned; they are never retried.
func Main(ctx context.Context, client *docs.Client, sink observe.Sink, clock clockwork.Clock,
	title string, out io.Writer) error {
	doc, err := client.Create(ctx, title)
	if err != nil {
		sink.Observe(observe.Event{Time: clock.Now(), Kind: observe.KindCreateFailed, Error: err.Error()})
		return errors.NewFriendlyError("Failed to create the document.\n"+
			"The server said: %s", err)
	}
	fmt.Fprintln(out, doc.ID)
	return nil
}
