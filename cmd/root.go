package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"collabtext/cmd/create"
	"collabtext/cmd/discover"
	"collabtext/cmd/edit"
	"collabtext/cmd/get"
	"collabtext/cmd/health"
	"collabtext/cmd/util"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "COLLABTEXT_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	var flags util.GlobalFlags
	rootCmd := &cobra.Command{
		Use:          "collabtext",
		Short:        "Edit shared documents together, live.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	flags.Register(rootCmd)
	rootCmd.AddCommand(
		create.New(&flags),
		discover.New(),
		edit.New(&flags),
		get.New(&flags),
		health.New(&flags),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
