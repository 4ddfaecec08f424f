// Package azure implements the publish stage: uploading the export
// artifact to Azure Blob Storage under a fixed, stable name.
package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blobcast/pkg/config"
	"github.com/ajitpratap0/blobcast/pkg/export"
	"github.com/ajitpratap0/blobcast/pkg/xerrors"
)

// Publisher uploads artifacts to the configured blob container. The blob
// name is constant across runs, so successive runs overwrite the artifact
// and it stays addressable at one URL.
type Publisher struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPublisher creates a Publisher for the configured distribution store.
func NewPublisher(cfg *config.Config, logger *zap.Logger) *Publisher {
	return &Publisher{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "publisher")),
	}
}

// Publish uploads the artifact bytes, overwriting any existing blob of
// the same name, and returns the retrieval URL. The URL is constructed
// deterministically from account, container and blob name; it does not
// depend on anything in the upload response. Any upload error is fatal.
func (p *Publisher) Publish(ctx context.Context, artifact *export.Artifact) (string, error) {
	client, err := azblob.NewClientFromConnectionString(p.cfg.Azure.ConnectionString, nil)
	if err != nil {
		return "", xerrors.Wrap(err, xerrors.ErrorTypeConnection, "failed to create blob client")
	}

	if _, err := client.UploadBuffer(ctx, p.cfg.Azure.Container, artifact.Name, artifact.Data, nil); err != nil {
		return "", xerrors.Wrap(err, xerrors.ErrorTypePublish, "blob upload failed").
			WithDetail("container", p.cfg.Azure.Container).
			WithDetail("blob", artifact.Name)
	}

	url := p.URL(artifact.Name)
	p.logger.Info("artifact published",
		zap.String("container", p.cfg.Azure.Container),
		zap.String("blob", artifact.Name),
		zap.Int("bytes", len(artifact.Data)),
		zap.String("url", url))

	return url, nil
}

// URL returns the deterministic public URL of the named blob.
func (p *Publisher) URL(blobName string) string {
	return p.cfg.Azure.BlobURL(blobName)
}
