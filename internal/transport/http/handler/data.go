package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sentinelhive/internal/app"
	"sentinelhive/internal/metrics"
	"sentinelhive/internal/transport/http/response"
)

type DataHandler struct {
	ingestService *app.IngestService
}

func NewDataHandler(ingestService *app.IngestService) *DataHandler {
	return &DataHandler{ingestService: ingestService}
}

// Store ingests the raw request body as one JSON document. Duplicate
// content answers 200 with the pre-existing id: ingestion is idempotent to
// the caller, with "deduplicated" flagging the replay.
func (h *DataHandler) Store(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "read request body failed")
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), app.IngestInput{
		Name:    c.GetHeader("X-Data-Name"),
		Content: body,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidPayload) {
			metrics.IngestTotal.WithLabelValues("rejected").Inc()
			response.Error(c, http.StatusBadRequest, "request body must be valid json")
			return
		}
		metrics.IngestTotal.WithLabelValues("error").Inc()
		response.Error(c, http.StatusInternalServerError, "store data failed")
		return
	}

	if result.Deduplicated {
		metrics.IngestTotal.WithLabelValues("deduplicated").Inc()
	} else {
		metrics.IngestTotal.WithLabelValues("created").Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"id":           result.ID,
		"deduplicated": result.Deduplicated,
	})
}

func (h *DataHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid record id")
		return
	}

	record, err := h.ingestService.GetRecord(c.Request.Context(), uint(id))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "fetch record failed")
		return
	}
	if record == nil {
		response.Error(c, http.StatusNotFound, "record not found")
		return
	}
	c.JSON(http.StatusOK, record)
}
