package parser

import (
	"io"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
)

// Parser turns one uploaded file into an ordered list of import candidates.
type Parser interface {
	// Parse reads the whole content of r and returns candidates in source
	// order. Rows failing the date/description/positive-amount check are
	// dropped; when none survive the error wraps
	// parsererror.ErrNoTransactionsFound.
	Parse(r io.Reader) ([]models.ParsedTransaction, error)
}

// LoggerConfigurable is implemented by parsers whose logger can be swapped.
type LoggerConfigurable interface {
	SetLogger(logger logging.Logger)
}

// FullParser combines both capabilities.
type FullParser interface {
	Parser
	LoggerConfigurable
}
