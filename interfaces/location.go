package interfaces

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidLocationURI is returned when a location URI is malformed or uses
// an unsupported scheme. URIs follow [scheme]://[auth@]host[:port][/path][?params].
var ErrInvalidLocationURI = errors.New("invalid location URI")

// Location is a parsed URI selecting a key store or template source
// implementation. The scheme picks the implementation, the rest of the URI
// carries its settings.
type Location struct {
	Raw    string     // Original URI
	Scheme string     // Implementation selector
	Host   string     // Hostname or host:port
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewLocation parses and validates a location URI.
// Key stores use mem://, file://, sealed:// and vault://; template sources
// use builtin://, file://, github://, ipfs:// and s3://.
func NewLocation(uri string) (Location, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "mem", "file", "sealed", "vault", "builtin", "github", "ipfs", "s3":
		// Valid scheme
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return Location{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc Location) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc Location) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc Location) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}
