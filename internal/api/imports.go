package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/pipeline"
)

type previewResponse struct {
	ID           string                     `json:"id"`
	FileName     string                     `json:"file_name"`
	Format       string                     `json:"format"`
	Count        int                        `json:"count"`
	Transactions []models.ParsedTransaction `json:"transactions"`
}

func (s *Server) uploadImport(c *gin.Context) {
	data, name, contentType, ok := s.readUpload(c, "file")
	if !ok {
		return
	}

	session, err := s.deps.Importer.Preview(c.Request.Context(), userID(c), pipeline.File{
		Name:        name,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, previewResponse{
		ID:           session.ID,
		FileName:     session.FileName,
		Format:       string(session.Format),
		Count:        len(session.Transactions),
		Transactions: session.Transactions,
	})
}

func (s *Server) confirmImport(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	n, err := session.Confirm(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n, "message": fmt.Sprintf("Imported %d transactions", n)})
}

func (s *Server) cancelImport(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	session.Cancel()
	c.Status(http.StatusNoContent)
}

func (s *Server) session(c *gin.Context) (*pipeline.Session, bool) {
	if s.deps.Sessions == nil {
		notFound(c, "import")
		return nil, false
	}
	session, ok := s.deps.Sessions.Get(userID(c), c.Param("id"))
	if !ok {
		notFound(c, "import")
		return nil, false
	}
	return session, true
}

// readUpload reads a multipart file field. Reading stops one byte past the
// upload limit so the size check downstream still sees an oversized file.
func (s *Server) readUpload(c *gin.Context, field string) ([]byte, string, string, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		badRequest(c, field+" required")
		return nil, "", "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		badRequest(c, "could not read "+field)
		return nil, "", "", false
	}
	return data, header.Filename, header.Header.Get("Content-Type"), true
}
