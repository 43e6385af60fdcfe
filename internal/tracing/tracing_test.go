package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{Enabled: true, Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "workflow.fetch-intel")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "workflow.fetch-intel")
	assert.Contains(t, buf.String(), "cybersentinel")
}
