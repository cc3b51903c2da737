// Package analysis selects and configures the document-analysis engine.
package analysis

import (
	"fmt"

	"github.com/finsight/finsight/internal/analysis/keyword"
	"github.com/finsight/finsight/internal/analysis/openai"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/pkg/models"
)

// NewEngine constructs the appropriate analysis engine based on config.
// Called once at startup.
func NewEngine(cfg config.AnalysisConfig) (models.AnalysisEngine, error) {
	switch cfg.Engine {
	case "keyword":
		return keyword.NewEngine(), nil
	case "openai":
		return openai.NewEngine(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown analysis engine %q: must be one of keyword, openai", cfg.Engine)
	}
}
