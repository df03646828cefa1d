package files

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docxBytes(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadText_ByExtension(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir)

	doc := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t></w:r></w:p></w:body></w:document>`

	files := map[string][]byte{
		"a.txt":  []byte("  plain text  \n"),
		"b.csv":  []byte("name,score\nana, 9\n"),
		"c.json": []byte(`{"a":1}`),
		"d.docx": docxBytes(t, doc),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	cases := map[string]string{
		"a.txt":  "plain text",
		"b.csv":  "name | score\nana | 9",
		"c.json": "{\n  \"a\": 1\n}",
		"d.docx": "Hello world\nSecond",
	}
	for name, want := range cases {
		got, err := r.ReadText(context.Background(), filepath.Join(dir, name), 0)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestReadText_Unsupported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.exe")
	require.NoError(t, os.WriteFile(p, []byte{0}, 0o644))
	_, err := NewResolver(dir).ReadText(context.Background(), p, 0)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestReadText_Truncates(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "long.txt")
	require.NoError(t, os.WriteFile(p, []byte("héllo world"), 0o644))
	got, err := NewResolver(dir).ReadText(context.Background(), p, 5)
	require.NoError(t, err)
	assert.Equal(t, "héllo\n...", got)
}

func TestDecode_BrokenInputs(t *testing.T) {
	_, err := Decode(".docx", []byte("not a zip"))
	assert.Error(t, err)
	_, err = Decode(".txt", []byte{0xff, 0xfe, 0xfd})
	assert.Error(t, err)
	got, err := Decode(".json", []byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, "not json", got)
}
