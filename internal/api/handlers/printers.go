package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printbridge/printbridge/internal/db"
)

// PrinterHandler exposes the informational agent registry. The registry
// records which printers have announced themselves and when they were
// last seen; dispatch never consults it.
type PrinterHandler struct {
	printers *db.PrinterStore
}

func NewPrinterHandler(printers *db.PrinterStore) *PrinterHandler {
	return &PrinterHandler{printers: printers}
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers, err := h.printers.ListPrinters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list printers"})
		return
	}
	if printers == nil {
		printers = []*db.Printer{}
	}

	c.JSON(http.StatusOK, gin.H{"printers": printers, "count": len(printers)})
}

func (h *PrinterHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/printers", h.ListPrinters)
}
