package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	p, err := New(false, "stdout", &buf)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "ignored")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestStdout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	p, err := New(true, "stdout", &buf)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "patch.reconcile")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "patch.reconcile")
}

func TestUnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := New(true, "zipkin", nil)
	require.Error(t, err)
}
