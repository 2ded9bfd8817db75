package worker

import (
	_ "embed"
	"os"
	"strings"
	"text/template"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/models"
)

//go:embed templates/enhance_prompt.tmpl
var defaultPromptTemplate string

// PromptBuilder renders the mini-batch prompt sent to the worker.
type PromptBuilder struct {
	tmpl *template.Template
}

// promptData is the template context for one mini-batch.
type promptData struct {
	Items []models.ScanRecord
}

// NewPromptBuilder creates a builder using the embedded default template.
func NewPromptBuilder() (*PromptBuilder, error) {
	return newPromptBuilder(defaultPromptTemplate)
}

// NewPromptBuilderFromFile creates a builder from an operator-supplied
// template file, overriding the embedded default.
func NewPromptBuilderFromFile(path string) (*PromptBuilder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.WrapError(err, "failed to read prompt template: "+path)
	}
	return newPromptBuilder(string(data))
}

func newPromptBuilder(text string) (*PromptBuilder, error) {
	tmpl, err := template.New("enhance_prompt").Parse(text)
	if err != nil {
		return nil, common.WrapError(err, "failed to parse prompt template")
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// GeneratePrompt renders the prompt for one mini-batch of scan records.
func (pb *PromptBuilder) GeneratePrompt(items []models.ScanRecord) (string, error) {
	if len(items) == 0 {
		return "", common.NewError("cannot generate prompt for empty mini-batch")
	}

	var sb strings.Builder
	if err := pb.tmpl.Execute(&sb, promptData{Items: items}); err != nil {
		return "", common.WrapError(err, "failed to render prompt template")
	}
	return sb.String(), nil
}
