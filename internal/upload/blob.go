// Package upload publishes rendered reports to Azure Blob Storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// ConnectionStringEnv is read by the CLI when no SAS token is given.
const ConnectionStringEnv = "AZURE_STORAGE_CONNECTION_STRING"

// Destination is a parsed upload target such as
// https://acct.blob.core.windows.net/reports/nightly/?sv=...
type Destination struct {
	ServiceURL string
	Container  string
	Blob       string

	// SAS carries the raw query when the URL is pre-signed.
	SAS string
}

// ParseDestination splits raw into service, container and blob. A blob path
// that is empty or ends in "/" gets name appended.
func ParseDestination(raw, name string) (Destination, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("invalid upload URL %q: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return Destination{}, fmt.Errorf("invalid upload URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return Destination{}, fmt.Errorf("invalid upload URL %q: missing host", raw)
	}

	trimmed := strings.TrimPrefix(u.Path, "/")
	container, blobPath, _ := strings.Cut(trimmed, "/")
	if container == "" {
		return Destination{}, fmt.Errorf("invalid upload URL %q: missing container", raw)
	}
	if blobPath == "" || strings.HasSuffix(blobPath, "/") {
		if name == "" {
			return Destination{}, fmt.Errorf("invalid upload URL %q: missing blob name", raw)
		}
		blobPath = path.Join(blobPath, name)
	}

	return Destination{
		ServiceURL: u.Scheme + "://" + u.Host + "/",
		Container:  container,
		Blob:       blobPath,
		SAS:        u.RawQuery,
	}, nil
}

// URL is the blob location without any SAS token.
func (d Destination) URL() string {
	return d.ServiceURL + d.Container + "/" + d.Blob
}

// Options controls authentication and blob headers.
type Options struct {
	// ConnectionString is used when the destination carries no SAS token.
	ConnectionString string

	// Credential overrides the default Azure credential chain.
	Credential azcore.TokenCredential

	ContentType     string
	ContentEncoding string

	// Transport replaces the HTTP client, mainly for tests.
	Transport policy.Transporter
}

var defaultCredential = func() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

// Blob uploads data to dest and returns the blob URL. Authentication is, in
// order, the SAS token in dest, opts.ConnectionString, then opts.Credential
// or the default Azure credential chain.
func Blob(ctx context.Context, dest Destination, data []byte, opts Options) (string, error) {
	client, err := newClient(dest, opts)
	if err != nil {
		return "", err
	}

	headers := &blob.HTTPHeaders{}
	if opts.ContentType != "" {
		headers.BlobContentType = &opts.ContentType
	}
	if opts.ContentEncoding != "" {
		headers.BlobContentEncoding = &opts.ContentEncoding
	}
	if _, err := client.UploadBuffer(ctx, dest.Container, dest.Blob, data, &azblob.UploadBufferOptions{HTTPHeaders: headers}); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return "", fmt.Errorf("uploading to %s: %s (status %d)", dest.URL(), respErr.ErrorCode, respErr.StatusCode)
		}
		return "", fmt.Errorf("uploading to %s: %w", dest.URL(), err)
	}
	return dest.URL(), nil
}

func newClient(dest Destination, opts Options) (*azblob.Client, error) {
	clientOpts := &azblob.ClientOptions{}
	if opts.Transport != nil {
		clientOpts.Transport = opts.Transport
	}

	switch {
	case dest.SAS != "":
		return azblob.NewClientWithNoCredential(dest.ServiceURL+"?"+dest.SAS, clientOpts)
	case opts.ConnectionString != "":
		client, err := azblob.NewClientFromConnectionString(opts.ConnectionString, clientOpts)
		if err != nil {
			return nil, fmt.Errorf("parsing storage connection string: %w", err)
		}
		return client, nil
	}

	cred := opts.Credential
	if cred == nil {
		var err error
		cred, err = defaultCredential()
		if err != nil {
			return nil, fmt.Errorf("creating Azure credential: %w", err)
		}
	}
	return azblob.NewClient(dest.ServiceURL, cred, clientOpts)
}
