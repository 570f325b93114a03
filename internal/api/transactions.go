package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/transactions"
	"fjacquet/fintrack/internal/validation"
)

func (s *Server) listTransactions(c *gin.Context) {
	q := transactions.ListQuery{
		Category: c.Query("category"),
		Type:     models.TransactionType(c.Query("type")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(c, "limit must be a positive number")
			return
		}
		q.Limit = limit
	}
	if q.Type != "" && !q.Type.Valid() {
		badRequest(c, "type must be income or expense")
		return
	}

	txs, err := s.deps.Transactions.List(c.Request.Context(), userID(c), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (s *Server) createTransaction(c *gin.Context) {
	var in validation.TransactionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "date, amount and type are required")
		return
	}
	tx, err := s.deps.Transactions.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) updateTransaction(c *gin.Context) {
	var p transactions.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := s.deps.Transactions.Update(c.Request.Context(), userID(c), c.Param("id"), p); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteTransaction(c *gin.Context) {
	if err := s.deps.Transactions.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
