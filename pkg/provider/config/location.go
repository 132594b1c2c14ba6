package config

import (
	"net/url"
	"path"
	"strings"

	"github.com/oneconcern/contentstore/pkg/provider/status"
)

// Scheme of a provider location
type Scheme string

// Supported schemes
const (
	SchemeMemory Scheme = "memory"
	SchemeFile   Scheme = "file"
	SchemeLocal  Scheme = "local"
	SchemeBolt   Scheme = "bolt"
	SchemeS3     Scheme = "s3"
	SchemeGCS    Scheme = "gcs"
	SchemeHTTP   Scheme = "http"
	SchemeHTTPS  Scheme = "https"
)

// Location of a provider, parsed from its URI
type Location struct {
	Scheme Scheme
	// Bucket for s3 and gcs
	Bucket string
	// Host of a remote content server
	Host string
	// Path is the directory of a file provider, the database file of a bolt provider,
	// or the key prefix in a bucket
	Path   string
	Params url.Values
	URI    string
}

// ParseLocation parses a provider URI
func ParseLocation(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, status.ErrConfiguration.Wrapf("provider location %q: %v", uri, err)
	}
	loc := Location{
		Scheme: Scheme(strings.ToLower(u.Scheme)),
		Params: u.Query(),
		URI:    uri,
	}

	switch loc.Scheme {
	case SchemeMemory:
	case SchemeFile, SchemeLocal, SchemeBolt:
		// file://relative/dir is accepted as well as file:///abs/dir
		loc.Path = path.Clean(u.Host + u.Path)
		if u.Host == "" && u.Path == "" {
			return Location{}, status.ErrConfiguration.Wrapf("provider location %q: a path is required", uri)
		}
		if loc.Scheme == SchemeLocal {
			loc.Scheme = SchemeFile
		}
	case SchemeS3, SchemeGCS:
		if u.Host == "" {
			return Location{}, status.ErrConfiguration.Wrapf("provider location %q: a bucket is required", uri)
		}
		loc.Bucket = u.Host
		loc.Path = strings.Trim(u.Path, "/")
	case SchemeHTTP, SchemeHTTPS:
		if u.Host == "" {
			return Location{}, status.ErrConfiguration.Wrapf("provider location %q: a host is required", uri)
		}
		loc.Host = u.Host
		loc.Path = strings.TrimSuffix(u.Path, "/")
	default:
		return Location{}, status.ErrConfiguration.Wrapf("provider location %q: unsupported scheme %q", uri, u.Scheme)
	}
	return loc, nil
}

// Endpoint of a remote content server, without query parameters
func (l Location) Endpoint() string {
	return string(l.Scheme) + "://" + l.Host + l.Path
}

// String representation of the location
func (l Location) String() string {
	return l.URI
}
