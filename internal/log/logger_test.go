// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Configure is once-only, so the whole package shares one capture buffer.
var testBuf bytes.Buffer

func TestMain(m *testing.M) {
	Configure(Config{Output: &testBuf, Service: "test"})
	os.Exit(m.Run())
}

func TestWithComponentAddsField(t *testing.T) {
	testBuf.Reset()

	l := WithComponent("session")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(testBuf.Bytes(), &entry))
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestWithMovieAddsCorrelationKey(t *testing.T) {
	testBuf.Reset()

	l := WithMovie("status", "abc123")
	l.Info().Msg("tick")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(testBuf.Bytes(), &entry))
	assert.Equal(t, "status", entry["component"])
	assert.Equal(t, "abc123", entry["movie"])
}
