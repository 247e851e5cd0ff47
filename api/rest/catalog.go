package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/villacheck/server/catalog"
	"go.uber.org/zap"
)

// CatalogHandler serves the read-only property and inventory lists.
type CatalogHandler struct {
	catalog *catalog.Service
	timeout time.Duration
	logger  *zap.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(svc *catalog.Service, timeout time.Duration, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: svc, timeout: timeout, logger: logger}
}

// Properties handles GET /api/properties.
func (h *CatalogHandler) Properties(c *gin.Context) {
	ctx, cancel := storeContext(c, h.timeout)
	defer cancel()
	list, err := h.catalog.ListProperties(ctx)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Inventory handles GET /api/inventory?property_id=.
func (h *CatalogHandler) Inventory(c *gin.Context) {
	ctx, cancel := storeContext(c, h.timeout)
	defer cancel()
	list, err := h.catalog.ListInventory(ctx, queryAlias(c, "property_id", "propertyId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
