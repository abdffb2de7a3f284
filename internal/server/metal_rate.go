package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) ListMetalRates(c *gin.Context) {
	snapshot, err := s.metalRateSvc.List(c.Request.Context(), c.Query("market"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) RefreshMetalRates(c *gin.Context) {
	result, err := s.metalRateSvc.Refresh(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.log.Info("metal rates refreshed on request",
		zap.String("source", result.Source),
		zap.Int("updated", result.Updated),
	)
	c.JSON(http.StatusOK, gin.H{"data": result})
}
