// Package discovery finds document authorities on the local network over
// mDNS.
package discovery

import (
	"context"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	log "github.com/sirupsen/logrus"

	"collabtext/pkg/errors"
)

const (
	// Service is the DNS-SD service type authorities announce.
	Service = "_collabtext._tcp"

	// Domain is the mDNS browsing domain.
	Domain = "local."

	// DefaultTimeout is how long Browse listens when given no timeout.
	DefaultTimeout = 3 * time.Second
)

// Server is an authority found on the network.
type Server struct {
	Instance string `json:"instance"`
	Origin   string `json:"origin"`
}

// Browse listens for authorities announcing service for the given duration
// and returns every distinct one it heard, sorted by instance name.
func Browse(ctx context.Context, service string, timeout time.Duration) ([]Server, error) {
	if service == "" {
		service = Service
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, errors.WithContext(err, "initialize mDNS resolver")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, Domain, entries); err != nil {
		return nil, errors.WithContext(err, "browse for "+service)
	}

	return drain(ctx, entries), nil
}

// drain collects servers from entries until ctx is done or entries closes.
func drain(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) []Server {
	found := map[string]Server{}
	for {
		select {
		case <-ctx.Done():
			return collect(found)
		case entry, ok := <-entries:
			if !ok {
				return collect(found)
			}
			server, ok := FromEntry(entry)
			if !ok {
				logger := log.NewEntry(log.StandardLogger())
				if entry != nil {
					logger = logger.WithField("instance", entry.Instance)
				}
				logger.Debug("Ignoring mDNS entry without an address")
				continue
			}
			log.WithField("instance", server.Instance).
				WithField("origin", server.Origin).
				Debug("Discovered authority")
			found[server.Instance] = server
		}
	}
}

// FromEntry converts a resolved mDNS entry to a Server. The origin scheme
// comes from a "scheme=" TXT record and defaults to http. It reports false if
// the entry carries no usable address.
func FromEntry(entry *zeroconf.ServiceEntry) (Server, bool) {
	if entry == nil || entry.Port == 0 {
		return Server{}, false
	}

	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	case entry.HostName != "":
		host = strings.TrimSuffix(entry.HostName, ".")
	default:
		return Server{}, false
	}

	scheme := "http"
	for _, txt := range entry.Text {
		if value := strings.TrimPrefix(txt, "scheme="); value != txt {
			if value == "http" || value == "https" {
				scheme = value
			}
		}
	}

	origin := url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(entry.Port))}
	return Server{Instance: entry.Instance, Origin: origin.String()}, true
}

func collect(found map[string]Server) []Server {
	servers := make([]Server, 0, len(found))
	for _, server := range found {
		servers = append(servers, server)
	}
	sort.Slice(servers, func(i, j int) bool {
		return servers[i].Instance < servers[j].Instance
	})
	return servers
}
