package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/delivery"
	"github.com/updateme/engine/internal/infrastructure/httpserver/helpers"
)

type sendSummaryRequest struct {
	Email string `json:"email"`
}

type runNewsletterRequest struct {
	DaysInterval int `json:"days_interval"`
}

type sweepCacheRequest struct {
	Days int `json:"days"`
}

// previewSummary generates a summary for email without sending it.
func (s *Server) previewSummary(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	summary := s.summarySvc.GenerateNewsSummaryDetailed(c.Request().Context(), email)
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) sendSummary(c echo.Context) error {
	var req sendSummaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if err := s.newsletterSvc.SendFirstSummary(c.Request().Context(), req.Email); err != nil {
		s.logOps(c).WithError(err).Error("first summary failed")
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "sent", "email": req.Email})
}

func (s *Server) runNewsletter(c echo.Context) error {
	var req runNewsletterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DaysInterval < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "days_interval must not be negative")
	}
	report, err := s.newsletterSvc.ProcessPendingEmails(c.Request().Context(), req.DaysInterval)
	if err != nil && report == nil {
		s.logOps(c).WithError(err).Error("delivery run failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "delivery run failed")
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) cacheStats(c echo.Context) error {
	stats, err := s.cacheStore.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read cache stats")
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) sweepCache(c echo.Context) error {
	var req sweepCacheRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Days < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "days must not be negative")
	}
	deleted, err := s.cacheStore.ClearExpired(c.Request().Context(), req.Days)
	if err != nil {
		s.logOps(c).WithError(err).Error("cache sweep failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "cache sweep failed")
	}
	s.logOps(c).WithField("deleted", deleted).Info("cache sweep requested")
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) listDeliveries(c echo.Context) error {
	filter, err := deliveryFilter(c)
	if err != nil {
		return err
	}
	logs, total, err := s.deliverySvc.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list deliveries")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"deliveries": logs,
		"total":      total,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

func deliveryFilter(c echo.Context) (*delivery.Filter, error) {
	limit, err := helpers.QueryInt(c, "limit", 50)
	if err != nil {
		return nil, err
	}
	if limit > 500 {
		limit = 500
	}
	offset, err := helpers.QueryInt(c, "offset", 0)
	if err != nil {
		return nil, err
	}
	since, err := helpers.QueryTime(c, "since")
	if err != nil {
		return nil, err
	}
	f := &delivery.Filter{Limit: limit, Offset: offset, Since: since}
	if email := strings.TrimSpace(c.QueryParam("email")); email != "" {
		f.Email = &email
	}
	switch st := delivery.Status(c.QueryParam("status")); st {
	case "":
	case delivery.StatusSent, delivery.StatusFailed:
		f.Status = &st
	default:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	return f, nil
}

func (s *Server) logOps(c echo.Context) *logrus.Entry {
	subject, err := helpers.GetOpsSubjectFromContext(c)
	if err != nil {
		subject = "unknown"
	}
	logger := s.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(logrus.Fields{"ops_subject": subject, "path": c.Path()})
}
