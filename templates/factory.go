package templates

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// SourceFactory creates template sources from location URIs.
type SourceFactory struct {
	log *slog.Logger
}

// NewSourceFactory creates a new factory instance.
func NewSourceFactory(logger *slog.Logger) *SourceFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceFactory{log: logger}
}

// SourceFor creates a template source from a parsed location.
//
// Supported schemes:
//   - builtin: - templates compiled into the binary
//   - file:// - local directory, one subdirectory per template
//   - github:// - repository tarball via the GitHub API
//   - ipfs:// - per-template archives from an IPFS node
//   - s3:// - per-template archives from an S3 bucket
//
// Returns an error for any other scheme.
func (f *SourceFactory) SourceFor(location interfaces.Location) (interfaces.TemplateSource, error) {
	switch location.Scheme {
	case "builtin":
		return NewBuiltinSource(f.log), nil
	case "file":
		return f.createDirSource(location)
	case "github":
		return f.createGitHubSource(location)
	case "ipfs":
		return f.createIPFSSource(location)
	case "s3":
		return f.createS3Source(location)
	default:
		return nil, fmt.Errorf("unsupported template source scheme: %s", location.Scheme)
	}
}

// createDirSource creates a local directory source.
// URI format: file:///path/to/templates
func (f *SourceFactory) createDirSource(location interfaces.Location) (interfaces.TemplateSource, error) {
	f.log.Debug("Creating directory template source", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", location.String())
	}

	return NewDirSource(path, f.log), nil
}

// createGitHubSource creates a GitHub tarball source.
// URI format: github://owner/repo@ref or github://owner/repo?ref=main
func (f *SourceFactory) createGitHubSource(location interfaces.Location) (interfaces.TemplateSource, error) {
	f.log.Debug("Creating GitHub template source", slog.String("uri", location.String()))

	owner := location.Host
	repo := strings.Trim(location.Path, "/")

	ref := location.GetParam("ref")
	if name, tag, found := strings.Cut(repo, "@"); found {
		repo = name
		ref = tag
	}
	if ref == "" {
		ref = "main"
	}

	if owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid GitHub URI format, expected github://owner/repo@ref")
	}

	return NewGitHubSource(owner, repo, ref, f.log), nil
}

// createIPFSSource creates an IPFS source.
// URI format: ipfs://cid?gateway=host:port
func (f *SourceFactory) createIPFSSource(location interfaces.Location) (interfaces.TemplateSource, error) {
	f.log.Debug("Creating IPFS template source", slog.String("uri", location.String()))

	cid := location.Host
	if cid == "" {
		return nil, fmt.Errorf("missing CID in IPFS URI: %s", location.String())
	}

	gateway := location.GetParam("gateway")
	if gateway == "" {
		gateway = "localhost:5001" // Default IPFS API address
	}

	return NewIPFSSource(cid, gateway, f.log), nil
}

// createS3Source creates an S3 source.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=custom.s3.com
func (f *SourceFactory) createS3Source(location interfaces.Location) (interfaces.TemplateSource, error) {
	f.log.Debug("Creating S3 template source", slog.String("uri", location.String()))

	bucket := location.Host
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket in S3 URI: %s", location.String())
	}
	prefix := strings.Trim(location.Path, "/")

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1" // Default region
	}
	endpoint := location.GetParam("endpoint")

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
	}

	return NewS3Source(bucket, prefix, region, endpoint, accessKey, secretKey, f.log)
}
