package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePromptDefaultTemplate(t *testing.T) {
	pb, err := NewPromptBuilder()
	require.NoError(t, err)

	items := []models.ScanRecord{
		{ScanID: "scan-1", URL: "https://example.com/home", WCAGLevel: "AA", IssuesJSON: `[{"id":"color-contrast"}]`, PageTitle: "Home"},
		{ScanID: "scan-2", URL: "https://example.com/about", WCAGLevel: "A", IssuesJSON: "[]"},
	}

	prompt, err := pb.GeneratePrompt(items)
	require.NoError(t, err)

	assert.Contains(t, prompt, "scan-1")
	assert.Contains(t, prompt, "scan-2")
	assert.Contains(t, prompt, "https://example.com/home")
	assert.Contains(t, prompt, `[{"id":"color-contrast"}]`)
	// The contract fields the response parser depends on.
	assert.Contains(t, prompt, "scan_id")
	assert.Contains(t, prompt, "remediation_plan")
}

func TestGeneratePromptEmptyMiniBatch(t *testing.T) {
	pb, err := NewPromptBuilder()
	require.NoError(t, err)

	_, err = pb.GeneratePrompt(nil)
	assert.Error(t, err)
}

func TestNewPromptBuilderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Review these pages:\n{{range .Items}}{{.ScanID}} {{.URL}}\n{{end}}"), 0644))

	pb, err := NewPromptBuilderFromFile(path)
	require.NoError(t, err)

	prompt, err := pb.GeneratePrompt([]models.ScanRecord{{ScanID: "scan-7", URL: "https://example.com/x"}})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Review these pages:")
	assert.Contains(t, prompt, "scan-7 https://example.com/x")
}

func TestNewPromptBuilderFromFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewPromptBuilderFromFile(filepath.Join(t.TempDir(), "nope.tmpl"))
		assert.Error(t, err)
	})

	t.Run("invalid template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("{{range .Items}"), 0644))

		_, err := NewPromptBuilderFromFile(path)
		assert.Error(t, err)
	})
}
