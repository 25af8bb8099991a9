package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m)
	require.NotNil(t, m.Registry())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestRecordDocument(t *testing.T) {
	m := New()
	m.RecordDocument("pdf", "text", 20*time.Millisecond)
	m.RecordDocument("pdf", "ocr", time.Second)
	m.RecordDocument("excel", "structured", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("pdf", "ocr")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.documents))

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.Documents)
	assert.Equal(t, int64(2), s.DocumentsByFormat["pdf"])
	assert.Equal(t, int64(1), s.DocumentsByFormat["excel"])
}

func TestRecordLineItems(t *testing.T) {
	m := New()
	m.RecordLineItems("line_number", 4)
	m.RecordLineItems("freeform", 2)
	m.RecordLineItems("freeform", 0)

	s := m.Snapshot()
	assert.Equal(t, int64(6), s.LineItems)
	assert.Equal(t, int64(4), s.ItemsByStrategy["line_number"])
}

func TestPlaceholderRate(t *testing.T) {
	m := New()
	m.RecordDocument("image", "ocr", time.Millisecond)
	m.RecordDocument("image", "ocr", time.Millisecond)
	m.RecordPlaceholder()

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.Placeholders)
	assert.InDelta(t, 50.0, s.PlaceholderRate, 0.001)
}

func TestRecordToolRun(t *testing.T) {
	m := New()
	m.RecordToolRun("tesseract", nil)
	m.RecordToolRun("tesseract", errors.New("exit 1"))
	m.RecordToolRun("pdftoppm", errors.New("missing"))

	assert.Equal(t, int64(2), m.Snapshot().ToolFailures)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolRuns.WithLabelValues("tesseract", "ok")))
}

func TestRecordOCRPage(t *testing.T) {
	m := New()
	m.RecordOCRPage(0)
	m.RecordOCRPage(90)
	m.RecordOCRPage(90)

	assert.Equal(t, int64(3), m.Snapshot().OCRPages)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ocrRotations.WithLabelValues("90")))
}

func TestTrackInFlight(t *testing.T) {
	m := New()
	done := m.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestPrometheus(t *testing.T) {
	m := New()
	m.RecordPanic()
	m.RecordClassification("rfq")

	out := m.Prometheus()
	assert.True(t, strings.HasPrefix(out, "# HELP rfqextract_"), "own families come first")
	assert.Contains(t, out, "rfqextract_extractor_panics_total 1")
	assert.Contains(t, out, `rfqextract_attachments_classified_total{category="rfq"} 1`)
	assert.Contains(t, out, "go_goroutines")
}
