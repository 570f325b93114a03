// Package ocr turns receipt photos into draft transactions: a remote
// extractor returns the raw text and ParseReceipt picks amount, date and
// merchant candidates out of it.
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/rpc"
)

// Extractor reads the text printed on an image.
type Extractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// FunctionClient calls the hosted OCR function with {image: base64}.
type FunctionClient struct {
	rpc      *rpc.Client
	function string
}

// NewFunctionClient creates a FunctionClient. An empty function name uses
// "ocr-extract".
func NewFunctionClient(c *rpc.Client, function string) *FunctionClient {
	if function == "" {
		function = "ocr-extract"
	}
	return &FunctionClient{rpc: c, function: function}
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// ExtractText implements Extractor.
func (f *FunctionClient) ExtractText(ctx context.Context, image []byte) (string, error) {
	var resp extractResponse
	req := extractRequest{Image: base64.StdEncoding.EncodeToString(image)}
	if err := f.rpc.Call(ctx, f.function, req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

const extractPrompt = "Transcribe all text printed on this receipt, line by line. Output only the text."

// GeminiExtractor reads receipts with a multimodal Gemini model.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates an extractor authenticated with apiKey.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}

// ExtractText implements Extractor.
func (g *GeminiExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	resp, err := g.client.GenerativeModel(g.model).GenerateContent(ctx,
		genai.ImageData(imageFormat(image), image),
		genai.Text(extractPrompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from Gemini API")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// imageFormat returns the short image type ("jpeg", "png", ...) sniffed
// from the content.
func imageFormat(image []byte) string {
	ct := http.DetectContentType(image)
	if f, ok := strings.CutPrefix(ct, "image/"); ok {
		return f
	}
	return "jpeg"
}

// Scanner extracts and parses receipts.
type Scanner struct {
	extractor Extractor
	logger    logging.Logger
}

// NewScanner creates a Scanner.
func NewScanner(extractor Extractor, logger logging.Logger) *Scanner {
	return &Scanner{extractor: extractor, logger: logging.OrDefault(logger)}
}

// Scan reads image and returns the parsed receipt.
func (s *Scanner) Scan(ctx context.Context, image []byte) (Receipt, error) {
	if len(image) == 0 {
		return Receipt{}, &parsererror.ValidationError{Field: "image", Reason: "is empty"}
	}
	text, err := s.extractor.ExtractText(ctx, image)
	if err != nil {
		return Receipt{}, parsererror.Remote("ocr.extract", err)
	}
	r := ParseReceipt(text)
	s.logger.Debug("Scanned receipt",
		logging.F("merchant", r.Merchant),
		logging.F("amount_candidates", len(r.AmountCandidates)),
		logging.F("date_candidates", len(r.DateCandidates)))
	return r, nil
}
