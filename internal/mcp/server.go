// Package mcp exposes the RPU calculation pipeline as Model Context
// Protocol tools over standard I/O.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/quantbridge/rpucalc/internal/config"
	"github.com/quantbridge/rpucalc/internal/pipeline"
)

// ptdLayout is the expected format of the ptd tool argument.
const ptdLayout = "2006-01-02"

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *pipeline.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *pipeline.Service) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	calculateTool := mcp.NewTool(
		"rpu_calculate",
		mcp.WithDescription("Compute Reduced Paid-Up benefits from a Benefit Illustration PDF and a paid-to-date"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the Benefit Illustration PDF"),
		),
		mcp.WithString("ptd",
			mcp.Required(),
			mcp.Description("Paid-to-date in YYYY-MM-DD format"),
		),
	)
	s.mcpServer.AddTool(calculateTool, s.handleCalculate)

	inspectTool := mcp.NewTool(
		"rpu_inspect",
		mcp.WithDescription("Extract policy fields and product detection diagnostics from a Benefit Illustration PDF without computing benefits"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the Benefit Illustration PDF"),
		),
	)
	s.mcpServer.AddTool(inspectTool, s.handleInspect)
}

// readDocument loads and parses the PDF at path through the pipeline.
func (s *Server) readDocument(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.Size() > s.config.MaxFileSize {
		return nil, fmt.Errorf("file %s exceeds the %d byte limit", path, s.config.MaxFileSize)
	}
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return fileBytes, nil
}

// Handler functions
func (s *Server) handleCalculate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ptdArg, err := request.RequireString("ptd")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ptd, err := time.Parse(ptdLayout, ptdArg)
	if err != nil {
		return mcp.NewToolResultError("ptd must be YYYY-MM-DD"), nil
	}

	fileBytes, err := s.readDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.service.Compute(fileBytes, ptd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatResult(res)), nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fileBytes, err := s.readDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.service.Parse(fileBytes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, det, err := s.service.ExtractAndDetect(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Detected product: %s (confidence %.2f)\n", det.ProductID, det.Confidence)
	text += "Detection scores:\n"
	for id, score := range det.Scores {
		text += fmt.Sprintf("  %s: %.2f\n", id, score)
	}
	text += fmt.Sprintf("\nPages: %d (fallback extraction: %t)\n", doc.PageCount, doc.Fallback)

	fieldsJSON, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text += "\nExtracted fields:\n"
	text += string(fieldsJSON)

	return mcp.NewToolResultText(text), nil
}

// formatResult renders the computed outputs as readable text for the tool
// response. The proposer name is not part of the serialized result.
func (s *Server) formatResult(res *pipeline.Result) string {
	out := res.Outputs

	text := fmt.Sprintf("Reduced Paid-Up calculation for %s (case %s)\n", res.Fields.ProductName, res.CaseID)
	text += fmt.Sprintf("Detected with confidence %.2f\n\n", res.Confidence)
	text += fmt.Sprintf("Commencement date (derived): %s\n", out.RCD.Format(ptdLayout))
	text += fmt.Sprintf("Paid-to-date: %s\n", out.PTD.Format(ptdLayout))
	text += fmt.Sprintf("Assumed paid-up date: %s (grace %d days)\n", out.RPUDate.Format(ptdLayout), out.GracePeriodDays)
	text += fmt.Sprintf("Premium months paid: %d of %d\n", out.MonthsPaid, out.MonthsPayable)
	text += fmt.Sprintf("Paid-up factor: %.4f\n\n", out.RPUFactor)

	text += fmt.Sprintf("Total income (fully paid): %.2f\n", out.FullyPaid.TotalIncome)
	text += fmt.Sprintf("Income already paid out: %.2f\n", out.AlreadyPaidTotal)
	text += fmt.Sprintf("Total income (reduced paid-up): %.2f\n", out.ReducedPaidUp.TotalIncome)
	if out.FullyPaid.Maturity != nil && out.ReducedPaidUp.Maturity != nil {
		text += fmt.Sprintf("Maturity benefit: %.2f -> %.2f\n", *out.FullyPaid.Maturity, *out.ReducedPaidUp.Maturity)
	}
	if out.FullyPaid.Death != nil && out.ReducedPaidUp.Death != nil {
		text += fmt.Sprintf("Death benefit: %.2f -> %.2f\n", *out.FullyPaid.Death, *out.ReducedPaidUp.Death)
	}

	if len(out.FullyPaid.IncomeSegments) > 0 {
		text += "\nIncome pay-outs by policy year:\n"
		for _, seg := range out.FullyPaid.IncomeSegments {
			text += fmt.Sprintf("  years %d-%d: %.2f per year\n", seg.StartYear, seg.EndYear, seg.Amount)
		}
	}

	text += "\nNotes:\n"
	for _, note := range out.Notes {
		text += "  - " + note + "\n"
	}

	return text
}

// Run starts the MCP server over standard I/O.
func (s *Server) Run(_ context.Context) error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
