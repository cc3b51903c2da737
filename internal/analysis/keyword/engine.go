// Package keyword implements a self-contained analysis engine that scans
// document content for financial indicators. It needs no external services,
// which makes it the default engine and the one used when running without
// any API credentials.
package keyword

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finsight/finsight/pkg/models"
)

const (
	// Documents longer than this are scanned in full but previewed truncated.
	previewBytes = 500
	// Cap on how much content is scanned; matches the upstream extraction cap.
	maxScanBytes = 10000
)

// indicators maps a lowercase keyword to the finding reported when it occurs.
// Order matters for report stability.
var indicators = []struct {
	keyword string
	finding string
}{
	{"revenue", "Revenue/Sales data found"},
	{"profit", "Profitability information identified"},
	{"loss", "Loss information detected"},
	{"cash flow", "Cash flow statements present"},
	{"assets", "Asset information available"},
	{"liabilities", "Liability data found"},
	{"equity", "Equity information present"},
	{"debt", "Debt information identified"},
	{"investment", "Investment data found"},
	{"dividend", "Dividend information present"},
}

// Engine produces keyword-based reports.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string { return "keyword" }

func (e *Engine) Analyze(ctx context.Context, content []byte, query string) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, fmt.Errorf("analyzing document: no readable content")
	}

	text := string(content)
	scanned := text
	if len(scanned) > maxScanBytes {
		scanned = scanned[:maxScanBytes]
	}
	lower := strings.ToLower(scanned)

	var findings []string
	for _, ind := range indicators {
		if strings.Contains(lower, ind.keyword) {
			findings = append(findings, "- "+ind.finding)
		}
	}
	if len(findings) == 0 {
		findings = []string{"- No specific financial keywords detected"}
	}

	var b strings.Builder
	b.WriteString("# Financial Document Analysis\n\n")
	fmt.Fprintf(&b, "## Query: %s\n\n", query)
	b.WriteString("## Document Analysis:\n")
	fmt.Fprintf(&b, "- Content length: %d characters\n", len(text))
	fmt.Fprintf(&b, "- Analysis timestamp: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("## Key Findings:\n")
	b.WriteString(strings.Join(findings, "\n"))

	preview := text
	if len(preview) > previewBytes {
		preview = preview[:previewBytes] + "..."
	}
	fmt.Fprintf(&b, "\n\n## Document Preview (first %d characters):\n%s", previewBytes, preview)

	return &models.Report{
		Text:   b.String(),
		Engine: "keyword",
	}, nil
}

var _ models.AnalysisEngine = (*Engine)(nil)
