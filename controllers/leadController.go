package controllers

import (
	"context"
	"net/url"
	"strings"

	"leads-organizer-backend/logger"
	"leads-organizer-backend/models"
	"leads-organizer-backend/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Ingestor runs a website submission through the lead pipeline.
type Ingestor interface {
	Submit(ctx context.Context, fields map[string]string, source models.LeadSource) (*services.SubmitResult, error)
}

type LeadController struct {
	ingest Ingestor
}

func NewLeadController(ingest Ingestor) *LeadController {
	return &LeadController{ingest: ingest}
}

// GET|POST /api/leads
// The form is posted as one url-encoded string under the "data" key.
func (lc *LeadController) Submit(c *fiber.Ctx) error {
	raw := c.FormValue("data")
	if raw == "" {
		raw = c.Query("data")
	}
	if strings.TrimSpace(raw) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing data")
	}

	// ParseQuery keeps every pair it could decode; the rest are dropped
	values, err := url.ParseQuery(escapeLiteralChars(raw))
	if err != nil {
		logger.FromFiber(c).Warn("lead data partially decoded", zap.Error(err))
	}
	fields := make(map[string]string, len(values))
	for key := range values {
		fields[key] = values.Get(key)
	}

	// storage faults are logged by the pipeline; the site always gets a success
	if _, err := lc.ingest.Submit(c.UserContext(), fields, services.SourceForFields(fields)); err != nil {
		logger.FromFiber(c).Warn("lead submission finished with errors", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"message": "success",
	})
}

// escapeLiteralChars keeps ";" and "%" not starting an escape sequence as
// literal text instead of letting them invalidate the pair they appear in.
func escapeLiteralChars(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == ';':
			b.WriteString("%3B")
		case raw[i] == '%' && !(i+2 < len(raw) && isHex(raw[i+1]) && isHex(raw[i+2])):
			b.WriteString("%25")
		default:
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
