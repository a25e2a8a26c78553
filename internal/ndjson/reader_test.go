package ndjson

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ReadsLines(t *testing.T) {
	t.Parallel()
	r := NewReader(strings.NewReader("{\"a\":1}\n\n{\"b\":2}\n"))

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(line))

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(line))

	_, err = r.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_EmptyInput(t *testing.T) {
	t.Parallel()
	r := NewReader(strings.NewReader(""))
	_, err := r.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_LargeLine(t *testing.T) {
	t.Parallel()
	big := strings.Repeat("x", 2*1024*1024)
	r := NewReader(strings.NewReader(`{"v":"` + big + `"}` + "\n"))
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Contains(t, string(line), big)
}
