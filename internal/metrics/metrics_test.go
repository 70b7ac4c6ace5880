// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	before := testutil.ToFloat64(ConversionsTotal.WithLabelValues("image", "encode", "ok"))
	ConversionsTotal.WithLabelValues("image", "encode", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ConversionsTotal.WithLabelValues("image", "encode", "ok")))

	path := filepath.Join(t.TempDir(), "textbridge.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `textbridge_conversions_total{direction="encode",domain="image",status="ok"}`)
}

func TestWriteTextfile_BadDir(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "out.prom"))
	assert.Error(t, err)
}
