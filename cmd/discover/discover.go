package discover

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"collabtext/cmd/util"
	"collabtext/pkg/discovery"
)

// New creates a new `discover` command.
func New() *cobra.Command {
	var timeout time.Duration
	var service string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List document servers announcing themselves on the local network",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			servers, err := discovery.Browse(context.Background(), service, timeout)
			if err != nil {
				util.HandleFatalError(err)
			}
			Print(os.Stdout, servers)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultTimeout, "How long to listen for announcements.")
	cmd.Flags().StringVar(&service, "service", discovery.Service, "The DNS-SD service type to browse for.")
	return cmd
}

// Print writes servers to out as a table.
func Print(out io.Writer, servers []discovery.Server) {
	if len(servers) == 0 {
		fmt.Fprintln(out, "No servers found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tORIGIN")
	for _, server := range servers {
		fmt.Fprintf(w, "%s\t%s\n", server.Instance, server.Origin)
	}
	w.Flush()
}
