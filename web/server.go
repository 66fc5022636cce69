package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"AvatarElite/ledger"
	"AvatarElite/lib/sl"
	"AvatarElite/payment"
)

// Server exposes the health check and the payment webhook. Everything
// user-facing goes through Telegram, this is only for machines.
type Server struct {
	log      *slog.Logger
	payments *payment.Service
	ledger   *ledger.Ledger
	http     *http.Server
}

func New(addr string, payments *payment.Service, led *ledger.Ledger, log *slog.Logger) *Server {
	s := &Server{
		log:      log.With(sl.Module("web")),
		payments: payments,
		ledger:   led,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", s.handleHealth)
	router.POST("/payments/webhook", s.handleWebhook)

	s.http = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

func (s *Server) Run() error {
	s.log.Info("listening", slog.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWebhook verifies and fulfills Stripe events. Signature
// verification needs the raw body, so no binding here.
func (s *Server) handleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "reading body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.String(http.StatusBadRequest, "missing Stripe signature")
		return
	}

	completed, err := s.payments.HandleWebhook(payload, signature)
	if err != nil {
		s.log.Error("webhook rejected", sl.Err(err))
		c.String(http.StatusBadRequest, "webhook error: %s", err)
		return
	}

	if completed != nil {
		if err := s.ledger.Add(completed.UserId, completed.Credits); err != nil {
			// Non-2xx makes Stripe retry the event
			s.log.Error("crediting purchase", sl.User(completed.UserId), sl.Err(err))
			c.String(http.StatusInternalServerError, "crediting purchase")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
