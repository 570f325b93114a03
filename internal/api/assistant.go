package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"fjacquet/fintrack/internal/ocr"
	"fjacquet/fintrack/internal/validation"
)

type chatRequest struct {
	Message        string          `json:"message"`
	ConversationID string          `json:"conversation_id"`
	FinancialData  json.RawMessage `json:"financial_data"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	var data any
	if len(req.FinancialData) > 0 {
		data = req.FinancialData
	}

	resp, convID, err := s.deps.Assistant.Ask(c.Request.Context(), userID(c), req.ConversationID, req.Message, data)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": convID,
		"response":        resp.Response,
		"provider":        resp.Provider,
	})
}

type receiptResponse struct {
	Receipt ocr.Receipt                 `json:"receipt"`
	Draft   validation.TransactionInput `json:"draft"`
}

func (s *Server) scanReceipt(c *gin.Context) {
	data, _, _, ok := s.readUpload(c, "image")
	if !ok {
		return
	}
	receipt, err := s.deps.Scanner.Scan(c.Request.Context(), data)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receiptResponse{Receipt: receipt, Draft: receipt.Draft()})
}
