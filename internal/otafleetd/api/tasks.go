package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) handleListTasks(c *gin.Context) {
	opts := parseListOptions(c)
	tasks, total, err := s.tasks.List(c.Param("appId"), opts)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	opts.Normalize()
	respondOK(c, newPaginated(tasks, opts.Page, opts.Limit, total))
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tasks.GetByID(c.Param("appId"), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, task)
}
