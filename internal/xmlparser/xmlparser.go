// Package xmlparser reads ISO 20022 camt.053 bank-to-customer statements.
// Every booked entry (Ntry) becomes one candidate; the amount is always
// positive and the credit/debit indicator decides income or expense.
package xmlparser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/xmlpath.v2"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/normalizer"
	"fjacquet/fintrack/internal/parser"
	"fjacquet/fintrack/internal/parsererror"
)

const (
	indicatorCredit = "CRDT"
	statusPending   = "PDNG"
)

var (
	statementPath = xmlpath.MustCompile("//BkToCstmrStmt/Stmt")
	entryPath     = xmlpath.MustCompile("//Ntry")

	amountPath    = xmlpath.MustCompile("Amt")
	indicatorPath = xmlpath.MustCompile("CdtDbtInd")
	statusPath    = xmlpath.MustCompile("Sts")
	reversalPath  = xmlpath.MustCompile("RvslInd")

	datePaths = []*xmlpath.Path{
		xmlpath.MustCompile("BookgDt/Dt"),
		xmlpath.MustCompile("BookgDt/DtTm"),
		xmlpath.MustCompile("ValDt/Dt"),
		xmlpath.MustCompile("ValDt/DtTm"),
	}
	remittancePaths = []*xmlpath.Path{
		xmlpath.MustCompile("NtryDtls/TxDtls/RmtInf/Ustrd"),
		xmlpath.MustCompile("NtryDtls/TxDtls/AddtlTxInf"),
		xmlpath.MustCompile("AddtlNtryInf"),
	}
	creditorPaths = []*xmlpath.Path{
		xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/Cdtr/Nm"),
		xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/Cdtr/Pty/Nm"),
		xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/UltmtCdtr/Nm"),
	}
	debtorPaths = []*xmlpath.Path{
		xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/Dbtr/Nm"),
		xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/Dbtr/Pty/Nm"),
		xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/UltmtDbtr/Nm"),
	}
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithPending keeps entries whose status is PDNG. Pending entries are
// skipped by default.
func WithPending(keep bool) Option {
	return func(a *Adapter) { a.keepPending = keep }
}

// Parse reads a camt.053 document from r and returns the valid candidates
// in document order.
func Parse(r io.Reader, logger logging.Logger) ([]models.ParsedTransaction, error) {
	return NewAdapter(logger).Parse(r)
}

// Adapter implements parser.FullParser for camt.053 XML files.
type Adapter struct {
	parser.BaseParser
	keepPending bool
}

// NewAdapter creates a new camt.053 parser.
func NewAdapter(logger logging.Logger, opts ...Option) *Adapter {
	a := &Adapter{BaseParser: parser.NewBaseParser("xml", logger)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Parse implements parser.Parser.
func (a *Adapter) Parse(r io.Reader) ([]models.ParsedTransaction, error) {
	logger := a.GetLogger()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading XML input: %w", err)
	}
	root, err := xmlpath.Parse(bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Warn("Content is not valid XML")
		return nil, &parsererror.UnsupportedFormatError{
			ContentType: "application/xml",
			Reason:      fmt.Sprintf("invalid XML: %v", err),
		}
	}
	if !statementPath.Exists(root) {
		return nil, &parsererror.UnsupportedFormatError{
			ContentType: "application/xml",
			Reason:      "not a camt.053 statement (no BkToCstmrStmt/Stmt)",
		}
	}

	var candidates []models.ParsedTransaction
	iter := entryPath.Iter(root)
	for i := 1; iter.Next(); i++ {
		entry := iter.Node()
		if skip, reason := a.skip(entry); skip {
			logger.Debug("Skipping entry",
				logging.F(logging.FieldParser, a.Name()),
				logging.F(logging.FieldRow, i),
				logging.F(logging.FieldReason, reason))
			continue
		}
		candidates = append(candidates, entryToCandidate(entry))
	}

	logger.Debug("Read camt.053 entries",
		logging.F(logging.FieldParser, a.Name()),
		logging.F(logging.FieldCount, len(candidates)))
	return a.Keep(candidates)
}

func (a *Adapter) skip(entry *xmlpath.Node) (bool, string) {
	if !a.keepPending && strings.EqualFold(first(entry, statusPath), statusPending) {
		return true, "pending"
	}
	if strings.EqualFold(first(entry, reversalPath), "true") {
		return true, "reversal"
	}
	return false, ""
}

func entryToCandidate(entry *xmlpath.Node) models.ParsedTransaction {
	typ := models.TransactionTypeExpense
	party := firstOf(entry, creditorPaths)
	if strings.EqualFold(first(entry, indicatorPath), indicatorCredit) {
		typ = models.TransactionTypeIncome
		party = firstOf(entry, debtorPaths)
	}

	date := firstOf(entry, datePaths)
	if len(date) > len("2006-01-02") {
		date = date[:len("2006-01-02")]
	}

	return models.NewParsedTransaction(
		normalizer.NormalizeDate(date),
		describe(party, firstOf(entry, remittancePaths)),
		normalizer.CleanAmount(first(entry, amountPath)),
		typ,
	)
}

// describe joins the counterparty and the remittance text. The party is
// left out when the remittance already names it.
func describe(party, remittance string) string {
	party = collapse(party)
	remittance = collapse(remittance)
	switch {
	case party == "":
		return remittance
	case remittance == "":
		return party
	case strings.Contains(strings.ToLower(remittance), strings.ToLower(party)):
		return remittance
	default:
		return party + " - " + remittance
	}
}

func first(node *xmlpath.Node, p *xmlpath.Path) string {
	s, _ := p.String(node)
	return strings.TrimSpace(s)
}

func firstOf(node *xmlpath.Node, paths []*xmlpath.Path) string {
	for _, p := range paths {
		if s := first(node, p); s != "" {
			return s
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
