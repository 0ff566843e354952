package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/roach88/pulsegrid/internal/grid"
	"github.com/roach88/pulsegrid/internal/schema"
	"github.com/roach88/pulsegrid/internal/tableapi"
)

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.repo.Ping(c.Request.Context()); err != nil {
		c.Error(err) //nolint:errcheck
		writeJSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateTable(c *gin.Context) {
	var def schema.Schema
	if err := decodeBody(c, &def); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	created, err := s.repo.CreateTable(c.Request.Context(), &def)
	if err != nil {
		writeRepoError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, created)
}

func (s *Server) handleGetTable(c *gin.Context) {
	def, err := s.repo.GetTable(c.Request.Context(), c.Param("table"))
	if err != nil {
		writeRepoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, def)
}

func (s *Server) handleListRows(c *gin.Context) {
	var filters []grid.Filter
	for _, raw := range c.QueryArray("filter") {
		f, err := tableapi.ParseFilterParam(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, err)
			return
		}
		filters = append(filters, f)
	}

	rows, err := s.repo.ListRowsFiltered(c.Request.Context(), c.Param("table"), filters)
	if err != nil {
		writeRepoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rows)
}

func (s *Server) handleInsertRow(c *gin.Context) {
	var req tableapi.InsertRequest
	if err := decodeBody(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	row, err := s.repo.InsertRow(c.Request.Context(), c.Param("table"), req.Values)
	if err != nil {
		writeRepoError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, row)
}

// handlePatchRow either moves a row or sets some of its cells, and answers
// with the stored row in both cases.
func (s *Server) handlePatchRow(c *gin.Context) {
	data, err := readBody(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	patch, err := tableapi.DecodePatch(data)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	table, rowID := c.Param("table"), c.Param("row")

	if patch.IsPosition() {
		if err := s.repo.UpdatePosition(ctx, table, rowID, *patch.Position); err != nil {
			writeRepoError(c, err)
			return
		}
		row, err := s.repo.GetRow(ctx, table, rowID)
		if err != nil {
			writeRepoError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, row)
		return
	}

	row, err := s.repo.UpdateCells(ctx, table, rowID, patch.Values)
	if err != nil {
		writeRepoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, row)
}

func (s *Server) handleDeleteRow(c *gin.Context) {
	if err := s.repo.DeleteRow(c.Request.Context(), c.Param("table"), c.Param("row")); err != nil {
		writeRepoError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func readBody(c *gin.Context) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func decodeBody(c *gin.Context, out any) error {
	data, err := readBody(c)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
