package otelsetup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledProviderIsNoopAndShutsDownCleanly(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	tr := p.Tracer("test")
	_, span := tr.Start(context.Background(), "op")
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}
