package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWithoutFrontmatter(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.Nil(t, doc.Fields)
	require.Equal(t, input, doc.Body)

	out, err := doc.Bytes()
	require.NoError(t, err)
	require.Equal(t, input, out)
}

func TestParseKeepsFieldOrder(t *testing.T) {
	doc, err := Parse([]byte("---\ntitle: Types\nweight: 2\n---\n# Title\n"))
	require.NoError(t, err)
	require.Equal(t, "# Title\n", string(doc.Body))

	title, ok := doc.Get("title")
	require.True(t, ok)
	require.Equal(t, "Types", title)

	doc.Set("fingerprint", "abc")
	doc.Set("title", "Node types")
	out, err := doc.Bytes()
	require.NoError(t, err)
	require.Equal(t, "---\ntitle: Node types\nweight: 2\nfingerprint: abc\n---\n# Title\n", string(out))

	rest, err := doc.Without("fingerprint")
	require.NoError(t, err)
	require.Equal(t, "title: Node types\nweight: 2", rest)
}

func TestParseMissingClosingDelimiter(t *testing.T) {
	_, err := Parse([]byte("---\nkey: value\n# Title\n"))
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestParseCRLF(t *testing.T) {
	doc, err := Parse([]byte("---\r\nkey: value\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.Equal(t, "# Title\r\n", string(doc.Body))

	out, err := doc.Bytes()
	require.NoError(t, err)
	require.Equal(t, "---\r\nkey: value\r\n---\r\n# Title\r\n", string(out))
}

func TestParseEmptyBlock(t *testing.T) {
	doc, err := Parse([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.NotNil(t, doc.Fields)
	require.Equal(t, "# Title\n", string(doc.Body))

	doc.Set("fingerprint", "x")
	out, err := doc.Bytes()
	require.NoError(t, err)
	require.Equal(t, "---\nfingerprint: x\n---\n# Title\n", string(out))
}

func TestSetCreatesFrontmatter(t *testing.T) {
	doc, err := Parse([]byte("body\n"))
	require.NoError(t, err)
	doc.Set("fingerprint", "x")
	out, err := doc.Bytes()
	require.NoError(t, err)
	require.Equal(t, "---\nfingerprint: x\n---\nbody\n", string(out))
}

func TestParseRejectsNonMapping(t *testing.T) {
	_, err := Parse([]byte("---\n- a\n---\nbody\n"))
	require.Error(t, err)
}
