package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fjacquet/fintrack/internal/backup"
	"fjacquet/fintrack/internal/export"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/transactions"
)

func (s *Server) listRecurring(c *gin.Context) {
	rows, err := s.deps.Recurring.List(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recurring": rows})
}

func (s *Server) saveRecurring(c *gin.Context) {
	var r models.RecurringTransaction
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := s.deps.Recurring.Save(c.Request.Context(), userID(c), &r); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) refreshRecurring(c *gin.Context) {
	n, err := s.deps.Recurring.Refresh(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (s *Server) exportBackup(c *gin.Context) {
	doc, err := s.deps.Backup.Export(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := backup.Write(&buf, doc); err != nil {
		s.writeError(c, err)
		return
	}
	name := fmt.Sprintf("fintrack-backup-%s.json", doc.ExportedAt.Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (s *Server) restoreBackup(c *gin.Context) {
	counts, err := s.deps.Backup.Import(c.Request.Context(), userID(c), c.Request.Body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.deps.Transactions.Invalidate(userID(c))
	c.JSON(http.StatusOK, gin.H{"restored": counts})
}

var contentTypes = map[export.Format]string{
	export.CSV:  "text/csv",
	export.XLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	export.PDF:  "application/pdf",
	export.JSON: "application/json",
}

func (s *Server) exportTransactions(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	txs, err := s.deps.Transactions.List(c.Request.Context(), userID(c), transactions.ListQuery{})
	if err != nil {
		s.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	opts := export.Options{Currency: c.Query("currency")}
	if err := export.Write(&buf, format, txs, opts); err != nil {
		s.writeError(c, err)
		return
	}
	name := fmt.Sprintf("transactions-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}
