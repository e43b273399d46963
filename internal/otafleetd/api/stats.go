package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.stats.Overview(c.Param("appId"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, stats)
}

func (s *Server) handleVersionDistribution(c *gin.Context) {
	distribution, err := s.stats.VersionDistribution(c.Param("appId"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, distribution)
}

func (s *Server) handleUpdateSuccessRate(c *gin.Context) {
	summary, err := s.stats.Summary(c.Param("appId"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, summary)
}
