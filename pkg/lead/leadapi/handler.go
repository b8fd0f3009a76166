package leadapi

import (
	"errors"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/lead"
	"github.com/Abraxas-365/realtor/pkg/lead/leadsrv"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

const defaultInteractionLimit = 50

// LeadHandlers serves the CRM webhooks and the session admin routes
type LeadHandlers struct {
	service *leadsrv.LeadService
}

func NewLeadHandlers(service *leadsrv.LeadService) *LeadHandlers {
	return &LeadHandlers{service: service}
}

// RegisterRoutes mounts the webhooks at the root, where CRM workflows
// expect them, and the admin routes under /api/v1. guard runs before each
// of these routes only.
func (h *LeadHandlers) RegisterRoutes(app fiber.Router, guard fiber.Handler) {
	app.Post("/send_message_to_ai", guard, h.SendMessage)
	app.Post("/clip_message_history", guard, h.ClipHistory)

	api := app.Group("/api/v1")
	api.Get("/sessions/:key", guard, h.GetSession)
	api.Delete("/sessions/:key", guard, h.EndSession)
	api.Get("/sessions/:key/interactions", guard, h.GetInteractions)
	api.Get("/contacts/location", guard, h.GetLocation)
}

// SendMessage answers a lead message
func (h *LeadHandlers) SendMessage(c *fiber.Ctx) error {
	req, err := parseWebhook(c)
	if err != nil {
		return writeError(c, err)
	}

	resp, err := h.service.SendMessage(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// ClipHistory shortens a transcript to the workflow's prompt budget
func (h *LeadHandlers) ClipHistory(c *fiber.Ctx) error {
	req, err := parseWebhook(c)
	if err != nil {
		return writeError(c, err)
	}

	resp, err := h.service.ClipHistory(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

func (h *LeadHandlers) GetSession(c *fiber.Ctx) error {
	view, err := h.service.Session(c.UserContext(), c.Params("key"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

func (h *LeadHandlers) EndSession(c *fiber.Ctx) error {
	if err := h.service.EndSession(c.UserContext(), c.Params("key")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *LeadHandlers) GetInteractions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultInteractionLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultInteractionLimit
	}

	items, err := h.service.Interactions(c.UserContext(), c.Params("key"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"interactions": items,
		"count":        len(items),
	})
}

func (h *LeadHandlers) GetLocation(c *fiber.Ctx) error {
	id, err := h.service.LocationID(c.UserContext(), c.Query("email"), c.Query("phone"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"location_id": id})
}

func parseWebhook(c *fiber.Ctx) (lead.WebhookRequest, error) {
	var req lead.WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return req, lead.ErrInvalidPayload(err)
	}
	return req, nil
}

// writeError renders application errors with their status; anything else
// goes to the app's error handler
func writeError(c *fiber.Ctx, err error) error {
	var e *errx.Error
	if !errors.As(err, &e) {
		return err
	}

	status := e.HTTPStatus
	if status == 0 {
		status = fiber.StatusInternalServerError
	}
	if status >= fiber.StatusInternalServerError {
		logx.WithFields(logx.Fields{
			"path":  c.Path(),
			"code":  e.Code,
			"error": err.Error(),
		}).Error("request failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
		"details": e.Details,
	})
}
