package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()
}

func TestWriteTextfile(t *testing.T) {
	Register()
	ExportPagesTotal.WithLabelValues("flattened").Inc()
	path := filepath.Join(t.TempDir(), "redact.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "redact_export_pages_total") {
		t.Fatalf("metric missing from textfile:\n%s", data)
	}
	if got := testutil.ToFloat64(ExportPagesTotal.WithLabelValues("flattened")); got < 1 {
		t.Fatalf("unexpected counter value %v", got)
	}
}
