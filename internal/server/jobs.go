package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) HandleJobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.orchestrator.Status()})
}

func (s *Server) HandleRunJob(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	details, err := s.orchestrator.RunNow(c.Request.Context(), name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": name, "summary": details})
}

func (s *Server) HandleStartJob(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if err := s.orchestrator.StartJob(name); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": name, "scheduled": true})
}

func (s *Server) HandleStopJob(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if err := s.orchestrator.StopJob(name); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": name, "scheduled": false})
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

func (s *Server) HandleUpdateSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))

	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.settingsSvc.Update(c.Request.Context(), key, req.Value); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}
