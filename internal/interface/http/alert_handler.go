package httpapi

import (
	"net/http"

	alertApp "price-alert/internal/application/alert"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleCreateAlert(c *gin.Context) {
	var body createAlertRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid body")
		return
	}
	a, err := s.alerts.CreateAlert(c.Request.Context(), alertApp.CreateAlertInput{
		Owner:       currentUserID(c),
		Ticker:      body.Ticker,
		TargetPrice: body.TargetPrice,
		Condition:   body.Condition,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"alert":   toAlertResponse(a),
	})
}

func (s *Server) handleListAlerts(c *gin.Context) {
	list, err := s.alerts.ListAlerts(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	out := make([]alertResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAlertResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"alerts":  out,
	})
}

func (s *Server) handleDeleteAlert(c *gin.Context) {
	if err := s.alerts.DeleteAlert(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
