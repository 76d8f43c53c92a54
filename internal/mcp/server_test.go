package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/quantbridge/rpucalc/internal/benefit"
	"github.com/quantbridge/rpucalc/internal/config"
	"github.com/quantbridge/rpucalc/internal/document"
	"github.com/quantbridge/rpucalc/internal/extract"
	"github.com/quantbridge/rpucalc/internal/pipeline"
	"github.com/quantbridge/rpucalc/internal/product"
)

// recognizeAll accepts any document and supplies fixture fields, so server
// tests run against unparseable placeholder files.
type recognizeAll struct{}

func (recognizeAll) ProductID() string                       { return "guaranteed_income_star" }
func (recognizeAll) Detect(*document.ParsedDocument) float64 { return 0.95 }
func (recognizeAll) Extract(*document.ParsedDocument) *extract.Fields {
	income := 50000.0
	f := &extract.Fields{
		ProductName:     "Guaranteed Income STAR",
		BIDate:          time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC),
		Mode:            "Annual",
		PolicyTermYears: 20,
		PPTYears:        10,
	}
	for py := 6; py <= 15; py++ {
		f.Schedule = append(f.Schedule, extract.ScheduleRow{PolicyYear: py, Income: &income})
	}
	return f
}
func (recognizeAll) Calculate(f *extract.Fields, ptd time.Time) (*benefit.Outputs, error) {
	return benefit.Calculate(f, ptd)
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:        "stdio",
		Host:        "127.0.0.1",
		Port:        8080,
		Version:     "1.0.0",
		ServerName:  "rpucalc-test",
		LogLevel:    "info",
		MaxFileSize: 1024 * 1024,
	}
}

func testPipeline() *pipeline.Service {
	return pipeline.NewService(
		document.NewLoader(document.DefaultMaxFileSize),
		nil,
		product.NewRegistry(recognizeAll{}),
	)
}

// writeTestPDF drops a placeholder PDF file into a temp directory.
func writeTestPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bi.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test fixture"), 0o600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	server, err := NewServer(testConfig(), testPipeline())
	if err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}
	if server == nil {
		t.Fatal("NewServer() returned nil server")
	}
}

func TestNewServerNilService(t *testing.T) {
	if _, err := NewServer(testConfig(), nil); err == nil {
		t.Error("NewServer() should reject a nil pipeline service")
	}
}

func TestHandleCalculate(t *testing.T) {
	server, err := NewServer(testConfig(), testPipeline())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := toolRequest(map[string]interface{}{
		"path": writeTestPDF(t),
		"ptd":  "2025-03-31",
	})

	result, err := server.handleCalculate(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "Paid-up factor: 0.2000") {
		t.Errorf("expected factor in response, got: %s", resultText)
	}
	if !strings.Contains(resultText, "Total income (reduced paid-up): 100000.00") {
		t.Errorf("expected reduced income in response, got: %s", resultText)
	}
}

func TestHandleCalculateBadPTD(t *testing.T) {
	server, err := NewServer(testConfig(), testPipeline())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := toolRequest(map[string]interface{}{
		"path": writeTestPDF(t),
		"ptd":  "31/03/2025",
	})

	result, err := server.handleCalculate(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for malformed ptd")
	}
}

func TestHandleCalculateMissingFile(t *testing.T) {
	server, err := NewServer(testConfig(), testPipeline())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := toolRequest(map[string]interface{}{
		"path": "/nonexistent/bi.pdf",
		"ptd":  "2025-03-31",
	})

	result, err := server.handleCalculate(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing file")
	}
}

func TestHandleCalculateOversizedFile(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFileSize = 4

	server, err := NewServer(cfg, testPipeline())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := toolRequest(map[string]interface{}{
		"path": writeTestPDF(t),
		"ptd":  "2025-03-31",
	})

	result, err := server.handleCalculate(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for oversized file")
	}
	if !strings.Contains(extractTextFromResult(result), "byte limit") {
		t.Errorf("expected size limit message, got: %s", extractTextFromResult(result))
	}
}

func TestHandleInspect(t *testing.T) {
	server, err := NewServer(testConfig(), testPipeline())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := toolRequest(map[string]interface{}{
		"path": writeTestPDF(t),
	})

	result, err := server.handleInspect(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "Detected product: guaranteed_income_star") {
		t.Errorf("expected detection line, got: %s", resultText)
	}
	if !strings.Contains(resultText, "Extracted fields:") {
		t.Errorf("expected extracted fields block, got: %s", resultText)
	}
}

func TestHandleInspectNeverExposesProposerName(t *testing.T) {
	server, err := NewServer(testConfig(), testPipeline())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := toolRequest(map[string]interface{}{
		"path": writeTestPDF(t),
	})

	result, err := server.handleInspect(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	// The fields are serialized with the standard JSON rules, which drop
	// the proposer name.
	if strings.Contains(extractTextFromResult(result), "proposer") {
		t.Errorf("inspect output must not carry proposer data: %s", extractTextFromResult(result))
	}
}

func TestServerInvalidArguments(t *testing.T) {
	server, err := NewServer(testConfig(), testPipeline())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	emptyRequest := toolRequest(map[string]interface{}{})

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{"rpu_calculate", server.handleCalculate},
		{"rpu_inspect", server.handleInspect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), emptyRequest)
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if !result.IsError {
				t.Error("expected tool error for missing required arguments")
			}
		})
	}
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}
