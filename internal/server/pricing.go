package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListPricing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tiers":  s.catalogs.Catalog().Tiers(),
		"source": s.catalogs.Source(),
	})
}
