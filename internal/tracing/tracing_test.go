package tracing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupExportsSpans(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	var buf bytes.Buffer
	shutdown, err := Setup(&buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(t.Context(), "close_day")
	span.End()

	require.NoError(t, shutdown(t.Context()))
	assert.Contains(t, buf.String(), `"Name":"close_day"`)
}

func TestSetupRejectsNilWriter(t *testing.T) {
	_, err := Setup(nil)
	assert.Error(t, err)
}
