package edit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"collabtext/pkg/buffer"
	"collabtext/pkg/errors"
	"collabtext/pkg/session"
	"collabtext/pkg/store"
)

const helpText = `Lines not starting with ':' are appended to the document.
Commands:
  :set TEXT     replace the whole document with TEXT
  :del N        delete the last N characters
  :print        show the document
  :state        show the connection state
  :connect ID   switch to another document
  :cursor N     share a cursor position with the other editors
  :help         show this help
  :q            quit
`

const pollInterval = 20 * time.Millisecond

type repl struct {
	ctx     context.Context
	opts    Options
	session *session.Session
	buf     *buffer.Buffer
	out     io.Writer
}

// open connects to docID and waits for its first snapshot.
func (r *repl) open(docID string) error {
	if err := r.session.RequestConnect(docID); err != nil {
		return errors.NewFriendlyError("Cannot open the document: %s", err)
	}
	if err := r.session.Flush(r.ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.opts.ConnectTimeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		status := r.session.Status()
		if status.Version != nil {
			fprintf(r.out, "Opened %s at version %d. Type :help for commands.\n", status.DocID, *status.Version)
			break
		}
		if status.State == session.Disconnected {
			return errors.NewFriendlyError("Could not connect to %s to open %q.",
				r.opts.Config.Server, docID)
		}

		select {
		case <-ctx.Done():
			return errors.NewFriendlyError("Timed out waiting for %q to load from %s.",
				docID, r.opts.Config.Server)
		case <-ticker.C:
		}
	}

	if r.opts.Store != nil {
		entry := store.Entry{DocID: docID, Server: r.opts.Config.Server, OpenedAt: r.opts.Clock.Now()}
		if err := r.opts.Store.SetLastDocument(entry); err != nil {
			log.WithError(err).Warn("Failed to remember the document")
		}
	}
	return nil
}

func (r *repl) loop(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		quit, err := r.handle(scanner.Text())
		if err != nil {
			fprintf(r.out, "%s\n", err)
		}
		if quit {
			return nil
		}
		if err := r.session.Flush(r.ctx); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (r *repl) handle(line string) (quit bool, err error) {
	if !strings.HasPrefix(line, ":") {
		r.buf.Update(func(text string) string { return appendLine(text, line) }, buffer.OriginUser)
		return false, nil
	}

	command, arg := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		command, arg = line[:i], line[i+1:]
	}

	switch command {
	case ":q", ":quit":
		return true, nil
	case ":help":
		fprintf(r.out, "%s", helpText)
	case ":print":
		fprintf(r.out, "%s\n", r.buf.Text())
	case ":set":
		r.buf.Set(arg, buffer.OriginUser)
	case ":del":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 0 {
			return false, errors.New("usage: :del N")
		}
		r.buf.Update(func(text string) string { return trimRunes(text, n) }, buffer.OriginUser)
	case ":cursor":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 0 {
			return false, errors.New("usage: :cursor N")
		}
		r.session.UpdateCursor(n)
	case ":state":
		status := r.session.Status()
		version := "unknown"
		if status.Version != nil {
			version = strconv.Itoa(*status.Version)
		}
		fprintf(r.out, "%s doc=%s version=%s generation=%d\n",
			status.State, status.DocID, version, status.Generation)
	case ":connect":
		return false, r.open(strings.TrimSpace(arg))
	default:
		return false, errors.New("unknown command %q, try :help", command)
	}
	return false, nil
}

// appendLine adds line to text as a new last line.
func appendLine(text, line string) string {
	if text == "" {
		return line
	}
	return text + "\n" + line
}

// trimRunes removes the last n characters of text.
func trimRunes(text string, n int) string {
	runes := []rune(text)
	return string(runes[:len(runes)-min(n, len(runes))])
}

func fprintf(w io.Writer, format string, args ...interface{}) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		log.WithError(err).Debug("Failed to write output")
	}
}
