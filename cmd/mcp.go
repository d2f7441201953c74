package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"pdfgears/converter"
	"pdfgears/converter/document"
	"pdfgears/converter/raster"
	"pdfgears/converter/security"
)

const serverName = "pdfgears"

// Tool argument keys, shared between schemas and handlers.
const (
	argInput    = "input_path"
	argInputs   = "input_paths"
	argOutput   = "output_path"
	argTarget   = "target"
	argPages    = "pages"
	argFormat   = "format"
	argQuality  = "quality"
	argDegrees  = "degrees"
	argPassword = "password"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the conversion tools over MCP on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		version := rootCmd.Version
		if version == "" {
			version = "dev"
		}
		s := server.NewMCPServer(serverName, version)
		registerTools(s, &tools{svc: service})
		logger.Info("serving MCP tools on stdio")
		return server.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// tools holds the MCP handlers. Paths are local files; results are written
// to disk and summarised as JSON.
type tools struct {
	svc *converter.Service
}

func registerTools(s *server.MCPServer, t *tools) {
	s.AddTool(
		mcp.NewTool("convert_document",
			mcp.WithDescription("Convert a document. PDF to docx, xlsx or md; docx or xlsx to pdf; png or jpg to pdf. "+
				"Markdown is returned inline when no output path is given."),
			mcp.WithString(argInput, mcp.Required(), mcp.Description("Absolute path of the input file")),
			mcp.WithString(argTarget, mcp.Required(), mcp.Description("Target format: docx, xlsx, md or pdf")),
			mcp.WithString(argOutput, mcp.Description("Where to write the result (default: next to the input)")),
		),
		t.convert,
	)
	s.AddTool(
		mcp.NewTool("render_pages",
			mcp.WithDescription("Render PDF pages to PNG or JPEG. Several pages are written as a ZIP."),
			mcp.WithString(argInput, mcp.Required(), mcp.Description("Absolute path of the PDF")),
			mcp.WithString(argPages, mcp.Description("Pages, e.g. '1,3-5' (default: all)")),
			mcp.WithString(argFormat, mcp.Description("png or jpg (default: png)")),
			mcp.WithNumber(argQuality, mcp.Description("1 (150 DPI), 2 (200 DPI) or 3 (300 DPI); default 2")),
			mcp.WithString(argOutput, mcp.Description("Where to write the result (default: next to the input)")),
		),
		t.render,
	)
	s.AddTool(
		mcp.NewTool("pdf_info",
			mcp.WithDescription("Page count, page rotations, encryption and whether the text is scanned."),
			mcp.WithString(argInput, mcp.Required(), mcp.Description("Absolute path of the PDF")),
		),
		t.info,
	)
	s.AddTool(
		mcp.NewTool("merge_pdfs",
			mcp.WithDescription("Concatenate PDFs in the given order."),
			mcp.WithString(argInputs, mcp.Required(), mcp.Description("Comma-separated absolute paths")),
			mcp.WithString(argOutput, mcp.Required(), mcp.Description("Where to write the merged PDF")),
		),
		t.merge,
	)
	s.AddTool(
		mcp.NewTool("rotate_pdf",
			mcp.WithDescription("Rotate every page clockwise by a multiple of 90 degrees."),
			mcp.WithString(argInput, mcp.Required(), mcp.Description("Absolute path of the PDF")),
			mcp.WithNumber(argDegrees, mcp.Required(), mcp.Description("Degrees, a multiple of 90")),
			mcp.WithString(argOutput, mcp.Description("Where to write the result (default: next to the input)")),
		),
		t.rotate,
	)
	s.AddTool(
		mcp.NewTool("protect_pdf",
			mcp.WithDescription("Encrypt a PDF with AES-256, falling back to other backends if needed."),
			mcp.WithString(argInput, mcp.Required(), mcp.Description("Absolute path of the PDF")),
			mcp.WithString(argPassword, mcp.Required(), mcp.Description("Password required to open the document")),
			mcp.WithString(argOutput, mcp.Description("Where to write the result (default: next to the input)")),
		),
		t.protect,
	)
	s.AddTool(
		mcp.NewTool("unlock_pdf",
			mcp.WithDescription("Remove password protection from a PDF."),
			mcp.WithString(argInput, mcp.Required(), mcp.Description("Absolute path of the PDF")),
			mcp.WithString(argPassword, mcp.Required(), mcp.Description("The document's password")),
			mcp.WithString(argOutput, mcp.Description("Where to write the result (default: next to the input)")),
		),
		t.unlock,
	)
	s.AddTool(
		mcp.NewTool("capabilities",
			mcp.WithDescription("Report which optional engines (rasterizer, OCR, office printer) are usable."),
		),
		t.capabilities,
	)
}

func stringArg(req mcp.CallToolRequest, key string) string {
	v, _ := req.Params.Arguments[key].(string)
	return strings.TrimSpace(v)
}

// passwordArg is not trimmed; spaces may be part of a password.
func passwordArg(req mcp.CallToolRequest) string {
	v, _ := req.Params.Arguments[argPassword].(string)
	return v
}

func numberArg(req mcp.CallToolRequest, key string) (int, bool) {
	switch v := req.Params.Arguments[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func toolError(err error) *mcp.CallToolResult {
	data, _ := json.Marshal(document.Describe(err))
	return mcp.NewToolResultError(string(data))
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// written is the summary returned for every tool that writes a file.
type written struct {
	Path      string                 `json:"path"`
	Bytes     int                    `json:"bytes"`
	MediaType string                 `json:"media_type,omitempty"`
	Strategy  string                 `json:"strategy,omitempty"`
	Backend   string                 `json:"backend,omitempty"`
	Failures  []document.ItemFailure `json:"failures,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func requireArgs(req mcp.CallToolRequest, keys ...string) *mcp.CallToolResult {
	for _, k := range keys {
		if stringArg(req, k) == "" {
			return mcp.NewToolResultError(k + " is required")
		}
	}
	return nil
}

func (t *tools) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, document.Wrap(document.KindInvalidInput, "read", err)
	}
	return data, nil
}

func (t *tools) convert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if r := requireArgs(req, argInput, argTarget); r != nil {
		return r, nil
	}
	input := stringArg(req, argInput)
	target, err := document.ParseFormat(stringArg(req, argTarget))
	if err != nil {
		return toolError(err), nil
	}
	data, err := t.readFile(input)
	if err != nil {
		return toolError(err), nil
	}
	res, err := t.svc.Convert(ctx, converter.Request{Source: data, Target: target})
	if res == nil {
		return toolError(err), nil
	}
	out := stringArg(req, argOutput)
	if out == "" && target == document.FormatMarkdown {
		return mcp.NewToolResultText(string(res.Data)), nil
	}
	if out == "" {
		out = defaultOutput(input, "", target.Ext())
		if out == input {
			out = defaultOutput(input, "_converted", target.Ext())
		}
	}
	return t.write(out, res)
}

func (t *tools) write(path string, res *converter.Result) (*mcp.CallToolResult, error) {
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return toolError(document.Wrap(document.KindConversionFailure, "write", err)), nil
	}
	return toolJSON(written{
		Path:      path,
		Bytes:     len(res.Data),
		MediaType: res.MediaType,
		Strategy:  res.Strategy,
		Failures:  res.Failures,
		RequestID: res.RequestID,
	})
}

func (t *tools) render(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if r := requireArgs(req, argInput); r != nil {
		return r, nil
	}
	input := stringArg(req, argInput)
	selected, err := parsePages(stringArg(req, argPages))
	if err != nil {
		return toolError(err), nil
	}
	format, err := document.ParseFormat(stringArg(req, argFormat))
	if err != nil {
		return toolError(err), nil
	}
	quality, _ := numberArg(req, argQuality)
	data, err := t.readFile(input)
	if err != nil {
		return toolError(err), nil
	}
	res, err := t.svc.Convert(ctx, converter.Request{
		Source:       data,
		SourceFormat: document.FormatPDF,
		Target:       format,
		Raster:       raster.Options{Quality: raster.Quality(quality), Format: format, Pages: selected},
	})
	if res == nil {
		return toolError(err), nil
	}
	out := stringArg(req, argOutput)
	if out == "" {
		out = siblingPath(input, res.Filename)
	}
	return t.write(out, res)
}

func (t *tools) info(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if r := requireArgs(req, argInput); r != nil {
		return r, nil
	}
	data, err := t.readFile(stringArg(req, argInput))
	if err != nil {
		return toolError(err), nil
	}
	info, err := t.svc.Info(data)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(info)
}

func (t *tools) openPDF(path string) (*document.Document, error) {
	data, err := t.readFile(path)
	if err != nil {
		return nil, err
	}
	return document.Open(data)
}

func (t *tools) writePDF(path string, doc *document.Document, backend string) (*mcp.CallToolResult, error) {
	data, err := doc.Encode()
	if err != nil {
		return toolError(err), nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return toolError(document.Wrap(document.KindConversionFailure, "write", err)), nil
	}
	return toolJSON(written{Path: path, Bytes: len(data), MediaType: document.MediaPDF, Backend: backend})
}

func (t *tools) merge(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if r := requireArgs(req, argInputs, argOutput); r != nil {
		return r, nil
	}
	var docs []*document.Document
	for _, path := range strings.Split(stringArg(req, argInputs), ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		doc, err := t.openPDF(path)
		if err != nil {
			return toolError(err), nil
		}
		docs = append(docs, doc)
	}
	return t.writePDF(stringArg(req, argOutput), t.svc.Pages.Merge(docs...), "")
}

func (t *tools) rotate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if r := requireArgs(req, argInput); r != nil {
		return r, nil
	}
	degrees, ok := numberArg(req, argDegrees)
	if !ok {
		return mcp.NewToolResultError(argDegrees + " is required"), nil
	}
	input := stringArg(req, argInput)
	doc, err := t.openPDF(input)
	if err != nil {
		return toolError(err), nil
	}
	rotated, err := t.svc.Pages.Rotate(doc, degrees)
	if err != nil {
		return toolError(err), nil
	}
	out := stringArg(req, argOutput)
	if out == "" {
		out = defaultOutput(input, "_rotated", "pdf")
	}
	return t.writePDF(out, rotated, "")
}

func (t *tools) protect(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if r := requireArgs(req, argInput, argPassword); r != nil {
		return r, nil
	}
	input := stringArg(req, argInput)
	doc, err := t.openPDF(input)
	if err != nil {
		return toolError(err), nil
	}
	res, err := t.svc.Security.Protect(doc, security.NewSpec(passwordArg(req)))
	if err != nil {
		return toolError(err), nil
	}
	out := stringArg(req, argOutput)
	if out == "" {
		out = defaultOutput(input, "_protected", "pdf")
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return toolError(document.Wrap(document.KindConversionFailure, "write", err)), nil
	}
	return toolJSON(written{Path: out, Bytes: len(res.Data), MediaType: document.MediaPDF, Backend: res.Backend})
}

func (t *tools) unlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if r := requireArgs(req, argInput, argPassword); r != nil {
		return r, nil
	}
	input := stringArg(req, argInput)
	data, err := t.readFile(input)
	if err != nil {
		return toolError(err), nil
	}
	res, err := t.svc.Security.Unlock(data, passwordArg(req))
	if err != nil {
		return toolError(err), nil
	}
	out := stringArg(req, argOutput)
	if out == "" {
		out = defaultOutput(input, "_unlocked", "pdf")
	}
	return t.writePDF(out, res.Document, res.Backend)
}

func (t *tools) capabilities(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(t.svc.Capabilities())
}
