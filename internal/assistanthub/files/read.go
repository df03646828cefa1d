package files

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// Extensions lists the formats ReadText understands.
var Extensions = []string{".txt", ".md", ".log", ".json", ".csv", ".docx", ".pdf"}

func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadText returns the textual content of path, dispatching on its extension.
// maxChars > 0 truncates the result.
func (r *Resolver) ReadText(ctx context.Context, path string, maxChars int) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	var (
		text string
		err  error
	)
	if ext == ".pdf" {
		text, err = readPDF(path)
	} else {
		var data []byte
		data, err = r.Download(ctx, path)
		if err == nil {
			text, err = Decode(ext, data)
		}
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return truncate(strings.TrimSpace(text), maxChars), nil
}

// Decode converts in-memory document bytes to text. PDF is not handled here.
func Decode(ext string, data []byte) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".log":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("file is not valid UTF-8")
		}
		return string(data), nil
	case ".json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return string(data), nil
		}
		return buf.String(), nil
	case ".csv":
		return readCSV(data)
	case ".docx":
		return readDOCX(data)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
}

func readCSV(data []byte) (string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n"), nil
}

// readDOCX collects paragraph text from word/document.xml.
func readDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return docxParagraphs(rc)
	}
	return "", fmt.Errorf("word/document.xml missing")
}

func docxParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteString("\t")
			case "br":
				cur.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paras = append(paras, cur.String())
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if cur.Len() > 0 {
		paras = append(paras, cur.String())
	}
	return strings.Join(paras, "\n"), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	pr, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(pr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	rs := []rune(s)
	return string(rs[:maxChars]) + "\n..."
}
