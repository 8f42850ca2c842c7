package edit

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"collabtext/cmd/util"
	"collabtext/pkg/buffer"
	"collabtext/pkg/config"
	"collabtext/pkg/errors"
	"collabtext/pkg/observe"
	"collabtext/pkg/session"
	"collabtext/pkg/store"
	"collabtext/pkg/transport"
)

// DefaultConnectTimeout bounds the wait for a document's first snapshot.
const DefaultConnectTimeout = 10 * time.Second

// New creates a new `edit` command.
func New(flags *util.GlobalFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "edit [document-id]",
		Short: "Edit a document interactively",
		Long: "Edit a document interactively. Every line typed is appended to the " +
			"document; lines starting with ':' are commands (see :help). Without a " +
			"document identifier, the last edited document is reopened.",
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			cfg, err := flags.LoadConfig()
			if err != nil {
				util.HandleFatalError(err)
			}
			if err := run(cfg, args, timeout); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", DefaultConnectTimeout,
		"How long to wait for the document to load.")
	return cmd
}

func run(cfg config.Config, args []string, timeout time.Duration) error {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return errors.WithContext(err, "open store")
	}
	defer st.Close()

	var docID string
	if len(args) == 1 {
		docID = args[0]
	} else {
		last, ok, err := st.LastDocument()
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewFriendlyError("No document to open.\n" +
				"Pass a document identifier, or create one with `collabtext create`.")
		}
		docID = last.DocID
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks := []observe.Sink{observe.LogSink{Logger: log.StandardLogger()}}
	if cfg.RedisAddr != "" {
		client, err := observe.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).WithField("addr", cfg.RedisAddr).
				Warn("Failed to connect to Redis, session events will not be published")
		} else {
			defer client.Close()
			redisSink := observe.NewRedisSink(client, cfg.RedisChannel)
			go redisSink.Run(ctx)
			sinks = append(sinks, redisSink)
		}
	}

	return Main(ctx, Options{
		Config:         cfg,
		DocID:          docID,
		Store:          st,
		Sink:           observe.Multi(sinks...),
		ConnectTimeout: timeout,
		In:             os.Stdin,
		Out:            os.Stdout,
	})
}

// Options configure an editing session.
type Options struct {
	Config config.Config
	DocID  string

	// Store, if set, remembers the documents that were opened.
	Store *store.Store

	Dialer transport.Dialer
	Sink   observe.Sink
	Clock  clockwork.Clock

	ConnectTimeout time.Duration

	In  io.Reader
	Out io.Writer
}

// Main runs an editing session on opts.DocID until the input ends or the
// user quits.
func Main(ctx context.Context, opts Options) error {
	policy, err := opts.Config.Policy()
	if err != nil {
		return err
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}

	out := &syncWriter{w: opts.Out}
	buf := buffer.New("")
	sess := session.New(buf, session.Options{
		Origin:     opts.Config.Server,
		Dialer:     opts.Dialer,
		Sink:       observe.Multi(opts.Sink, notifier{out: out}),
		Clock:      opts.Clock,
		NackPolicy: policy,
	})

	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	r := &repl{
		ctx:     ctx,
		opts:    opts,
		session: sess,
		buf:     buf,
		out:     out,
	}
	if err := r.open(opts.DocID); err != nil {
		return err
	}
	return r.loop(opts.In)
}

// syncWriter serializes writes from the prompt and from session events.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

// notifier tells the user about events that need their attention.
type notifier struct {
	out io.Writer
}

func (n notifier) Observe(e observe.Event) {
	switch e.Kind {
	case observe.KindNack:
		reason := e.Reason
		if reason == "" {
			reason = "no reason given"
		}
		fprintf(n.out, "! edit rejected by the server: %s\n", reason)
	case observe.KindResync:
		fprintf(n.out, "! reloading the document\n")
	case observe.KindTransportError:
		fprintf(n.out, "! disconnected: %s\n", e.Error)
	}
}
