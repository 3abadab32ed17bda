package httpapi

import (
	"net/http"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleVAPIDPublicKey(c *gin.Context) {
	if s.vapidPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "push is not configured", "error_code": errCodeUnavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"public_key": s.vapidPublicKey,
	})
}

func (s *Server) handleSubscribe(c *gin.Context) {
	var body subscribeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid body")
		return
	}
	err := s.alerts.Subscribe(c.Request.Context(), alertDomain.PushSubscription{
		Owner:    currentUserID(c),
		Endpoint: body.Endpoint,
		Keys: alertDomain.SubscriptionKeys{
			P256dh: body.Keys.P256dh,
			Auth:   body.Keys.Auth,
		},
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleUnsubscribe(c *gin.Context) {
	var body unsubscribeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := s.alerts.Unsubscribe(c.Request.Context(), body.Endpoint); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handlePushTest(c *gin.Context) {
	if !s.alerts.PushEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "push is not configured", "error_code": errCodeUnavailable})
		return
	}
	report, err := s.alerts.SendTest(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"attempted": report.Attempted,
		"delivered": report.Delivered,
		"gone":      report.Gone,
		"transient": report.Transient,
	})
}
