package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PJ1229/OOTD/internal/catalog"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Shop godoc
// @Summary     Shop catalog
// @Tags        catalog
// @Produce     json
// @Security    Bearer
// @Router      /api/v1/shop [get]
func (h *CatalogHandler) Shop(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sections": h.catalog.Shop})
}

// Library godoc
// @Summary     Garment library
// @Tags        catalog
// @Produce     json
// @Security    Bearer
// @Router      /api/v1/library [get]
func (h *CatalogHandler) Library(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"garments": h.catalog.Library})
}
