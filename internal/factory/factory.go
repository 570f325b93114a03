// Package factory selects the parser for an uploaded file, sniffing the
// content when the name and declared type are not conclusive.
package factory

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"fjacquet/fintrack/internal/csvparser"
	"fjacquet/fintrack/internal/jsonparser"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parser"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/textparser"
	"fjacquet/fintrack/internal/xlsxparser"
	"fjacquet/fintrack/internal/xmlparser"
)

// ParserType defines the types of parsers available.
type ParserType string

const (
	CSV  ParserType = "csv"
	XLSX ParserType = "xlsx"
	JSON ParserType = "json"
	Text ParserType = "text"
	XML  ParserType = "xml"
)

var byExtension = map[string]ParserType{
	".csv":  CSV,
	".tsv":  CSV,
	".xlsx": XLSX,
	".xls":  XLSX,
	".json": JSON,
	".txt":  Text,
	".xml":  XML,
}

var byContentType = map[string]ParserType{
	"text/csv":                  CSV,
	"application/csv":           CSV,
	"text/tab-separated-values": CSV,
	"application/vnd.ms-excel":  XLSX,
	"application/json":          JSON,
	"text/json":                 JSON,
	"application/xml":           XML,
	"text/xml":                  XML,

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": XLSX,
}

var zipMagic = []byte("PK\x03\x04")

// Options tunes the parsers built by the factory.
type Options struct {
	PreambleScanLines int
}

// DetectFormat decides which parser handles a file. The extension wins, then
// the declared content type, then the content itself. text/plain says
// nothing about the layout, so such uploads are sniffed.
func DetectFormat(name, contentType string, data []byte) (ParserType, error) {
	if t, ok := byExtension[strings.ToLower(filepath.Ext(name))]; ok {
		return t, nil
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if t, ok := byContentType[mediaType]; ok {
		return t, nil
	}

	return sniff(name, contentType, data)
}

func sniff(name, contentType string, data []byte) (ParserType, error) {
	if bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, xlsxparser.OLEMagic) {
		return XLSX, nil
	}

	if isBinary(data) {
		return "", &parsererror.UnsupportedFormatError{
			FileName:    name,
			ContentType: contentType,
			Reason:      "binary content",
		}
	}

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	if len(trimmed) == 0 {
		return "", &parsererror.UnsupportedFormatError{
			FileName:    name,
			ContentType: contentType,
			Reason:      "empty file",
		}
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		return JSON, nil
	}

	for _, line := range strings.Split(string(trimmed), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, ",") {
			return CSV, nil
		}
		break
	}
	return Text, nil
}

// isBinary reports whether the leading bytes look like a non-text file.
func isBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	// the cut may split a multi-byte rune
	for i := 0; i < 3 && len(head) > 0 && !utf8.Valid(head); i++ {
		head = head[:len(head)-1]
	}
	return !utf8.Valid(head)
}

// GetParserWithLogger returns a new instance of the appropriate parser for
// the given type.
func GetParserWithLogger(parserType ParserType, logger logging.Logger) (parser.FullParser, error) {
	return GetParserWithOptions(parserType, logger, Options{})
}

// GetParserWithOptions is GetParserWithLogger with parser tuning.
func GetParserWithOptions(parserType ParserType, logger logging.Logger, opts Options) (parser.FullParser, error) {
	switch parserType {
	case CSV:
		return csvparser.NewAdapter(logger, csvparser.WithPreambleScanLines(opts.PreambleScanLines)), nil
	case XLSX:
		return xlsxparser.NewAdapter(logger), nil
	case JSON:
		return jsonparser.NewAdapter(logger), nil
	case Text:
		return textparser.NewAdapter(logger), nil
	case XML:
		return xmlparser.NewAdapter(logger), nil
	default:
		return nil, fmt.Errorf("unknown parser type: %s", parserType)
	}
}

// ParseFile detects the format of an uploaded file and parses it.
func ParseFile(name, contentType string, data []byte, logger logging.Logger) ([]models.ParsedTransaction, ParserType, error) {
	return ParseFileWithOptions(name, contentType, data, logger, Options{})
}

// ParseFileWithOptions is ParseFile with parser tuning.
func ParseFileWithOptions(name, contentType string, data []byte, logger logging.Logger, opts Options) ([]models.ParsedTransaction, ParserType, error) {
	logger = logging.OrDefault(logger)

	format, err := DetectFormat(name, contentType, data)
	if err != nil {
		logger.WithError(err).Warn("Unsupported file", logging.F(logging.FieldFile, name))
		return nil, "", err
	}
	logger.Info("Detected file format",
		logging.F(logging.FieldFile, name),
		logging.F(logging.FieldFormat, string(format)))

	p, err := GetParserWithOptions(format, logger, opts)
	if err != nil {
		return nil, format, err
	}

	txs, err := p.Parse(bytes.NewReader(data))
	if err != nil {
		var unsupported *parsererror.UnsupportedFormatError
		if errors.As(err, &unsupported) && unsupported.FileName == "" {
			unsupported.FileName = name
		}
		return nil, format, err
	}
	return txs, format, nil
}
