package azure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/blobcast/pkg/config"
	"github.com/ajitpratap0/blobcast/pkg/testutil"
)

func newTestPublisher(t *testing.T) *Publisher {
	cfg := config.New()
	cfg.Azure.Account = "exportacct"
	cfg.Azure.Container = "exports"
	return NewPublisher(cfg, testutil.TestLogger(t))
}

func TestURLDeterministic(t *testing.T) {
	p := newTestPublisher(t)

	url := p.URL("data_export.csv")
	require.Equal(t, "https://exportacct.blob.core.windows.net/exports/data_export.csv", url)

	// The URL is a pure function of configuration; repeated calls for the
	// same name always resolve to the same address.
	assert.Equal(t, url, p.URL("data_export.csv"))
}

func TestURLCustomEndpointSuffix(t *testing.T) {
	p := newTestPublisher(t)
	p.cfg.Azure.EndpointSuffix = "core.usgovcloudapi.net"

	assert.Equal(t,
		"https://exportacct.blob.core.usgovcloudapi.net/exports/data_export.csv",
		p.URL("data_export.csv"))
}
