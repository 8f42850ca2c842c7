package transport

import (
	"net/url"
	"strings"

	"collabtext/pkg/errors"
)

// DocumentPath is the path prefix of per-document connections.
const DocumentPath = "/v1/ws/docs/"

// EndpointURL derives the connection address of a document from the origin the
// client was pointed at. Secure origins get a secure socket.
func EndpointURL(origin, docID string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", errors.WithContext(err, "parse origin")
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", errors.New("unsupported origin scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("origin %q has no host", origin)
	}

	endpoint := url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   DocumentPath + docID,
	}
	return endpoint.String(), nil
}
