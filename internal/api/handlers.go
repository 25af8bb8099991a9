package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/metrics"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   s.config.Version,
		"ledger":    s.ledger != nil,
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	return c.SendString(metrics.Prometheus())
}

func (s *Server) handleMetricsJSON(c *fiber.Ctx) error {
	return c.JSON(metrics.GetSnapshot())
}

func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	if s.ledger == nil {
		return c.Status(503).JSON(fiber.Map{"error": "ledger disabled"})
	}
	limit := c.QueryInt("limit", 50)
	if limit < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid limit"})
	}

	entries, err := s.ledger.List(limit)
	if err != nil {
		s.logger.Error("Failed to list ledger", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to list documents"})
	}
	return c.JSON(fiber.Map{
		"documents": entries,
		"count":     len(entries),
	})
}

func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	if s.ledger == nil {
		return c.Status(503).JSON(fiber.Map{"error": "ledger disabled"})
	}
	entry, ok, err := s.ledger.Get(c.Params("hash"))
	if err != nil {
		s.logger.Error("Failed to read ledger", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to read document"})
	}
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "document not found"})
	}
	return c.JSON(entry)
}

// handleForgetDocument drops a ledger entry so the next sweep extracts the
// file again.
func (s *Server) handleForgetDocument(c *fiber.Ctx) error {
	if s.ledger == nil {
		return c.Status(503).JSON(fiber.Map{"error": "ledger disabled"})
	}
	if err := s.ledger.Delete(c.Params("hash")); err != nil {
		s.logger.Error("Failed to delete ledger entry", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to forget document"})
	}
	return c.SendStatus(204)
}
