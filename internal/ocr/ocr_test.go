package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labresults-tracker/constants"
)

// stubRunner scripts one output per command name.
type stubRunner struct {
	stdout map[string]string
	errs   map[string]error
	calls  []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	if err, ok := s.errs[name]; ok {
		return nil, []byte("boom"), err
	}
	return []byte(s.stdout[name]), nil, nil
}

func newStubbedExtractor(t *testing.T, runner Runner) *Extractor {
	t.Helper()
	e := NewExtractor(Config{}, nil)
	e.runner = runner
	return e
}

func TestExtractUsesPDFTextLayer(t *testing.T) {
	text := "HBA1C 5.4 % collected 11 Jan 2025\fpage two content, still lab text"
	runner := &stubRunner{stdout: map[string]string{"pdftotext": text}}
	e := newStubbedExtractor(t, runner)

	res, err := e.Extract(context.Background(), "report.pdf")
	require.NoError(t, err)

	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, constants.PDF, res.SourceType)
	assert.Equal(t, 2, res.Pages, "form feeds delimit pages")
	assert.Equal(t, text, res.Text)
	assert.NotContains(t, runner.calls, "tesseract", "a usable text layer skips OCR")
}

func TestExtractFallsBackToOCRForScannedPDF(t *testing.T) {
	// A scanner-driver text layer: whitespace only, below the usable threshold.
	runner := &stubRunner{
		stdout: map[string]string{"pdftotext": "  \n \f  "},
		errs:   map[string]error{"pdftoppm": errors.New("no display")},
	}
	e := newStubbedExtractor(t, runner)

	_, err := e.Extract(context.Background(), "scan.pdf")
	require.Error(t, err, "the stub fails rasterization, proving the fallback ran")
	assert.Contains(t, runner.calls, "pdftoppm")
}

func TestExtractImageRunsTesseractDirectly(t *testing.T) {
	runner := &stubRunner{stdout: map[string]string{"tesseract": "Creatinine 78 umol/L"}}
	e := newStubbedExtractor(t, runner)

	res, err := e.Extract(context.Background(), "photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "Creatinine 78 umol/L", res.Text)
	assert.Equal(t, []string{"tesseract"}, runner.calls)
}

func TestExtractRejectsUnsupportedExtension(t *testing.T) {
	e := newStubbedExtractor(t, &stubRunner{})

	_, err := e.Extract(context.Background(), "notes.txt")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))
}

func TestHasUsableText(t *testing.T) {
	assert.False(t, hasUsableText("   \n\f  "))
	assert.False(t, hasUsableText("short"))
	assert.True(t, hasUsableText(strings.Repeat("lab report content ", 5)))
}
