package controllers

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"leads-organizer-backend/middlewares"
	"leads-organizer-backend/models"
	"leads-organizer-backend/services"
	"leads-organizer-backend/store"
	"leads-organizer-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type LeadRepository interface {
	List(ctx context.Context, params store.ListParams) ([]models.Lead, error)
	Count(ctx context.Context) (int64, error)
	DeleteByID(ctx context.Context, id uint) error
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
	All(ctx context.Context) ([]models.Lead, error)
}

type DeliveryLog interface {
	List(ctx context.Context, filter store.DeliveryFilter) ([]models.Delivery, int64, error)
}

type NonceKeeper interface {
	IssueNonce(userID, action string) (string, error)
	VerifyNonce(userID, action, nonce string) error
}

type BulkDeleteDTO struct {
	IDs   []uint `json:"ids" validate:"required,min=1,dive,gt=0"`
	Nonce string `json:"nonce"`
}

type DeliveryQueryDTO struct {
	Connector string `query:"connector" validate:"omitempty,oneof=pipedrive rdstation"`
	Status    string `query:"status" validate:"omitempty,oneof=succeeded failed"`
	Page      int    `query:"page" validate:"omitempty,min=1"`
	PerPage   int    `query:"per_page" validate:"omitempty,min=1,max=100"`
}

// AdminController serves the operator's lead listing.
type AdminController struct {
	leads      LeadRepository
	deliveries DeliveryLog
	nonces     NonceKeeper
}

func NewAdminController(leads LeadRepository, deliveries DeliveryLog, nonces NonceKeeper) *AdminController {
	return &AdminController{leads: leads, deliveries: deliveries, nonces: nonces}
}

// GET /api/admin/leads
func (ac *AdminController) ListLeads(c *fiber.Ctx) error {
	params := store.ListParams{
		Page:    utils.ParseIntDefault(c.Query("page", c.Query("paged")), 1),
		PerPage: utils.ParseIntDefault(c.Query("per_page"), store.DefaultPerPage),
		OrderBy: c.Query("orderby"),
		Order:   c.Query("order"),
	}.Normalize()

	ctx := c.UserContext()
	leads, err := ac.leads.List(ctx, params)
	if err != nil {
		return err
	}
	total, err := ac.leads.Count(ctx)
	if err != nil {
		return err
	}

	userID, _ := c.Locals("userID").(string)
	nonce, err := ac.nonces.IssueNonce(userID, middlewares.ActionDeleteLead)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"leads":        leads,
		"total":        total,
		"page":         params.Page,
		"per_page":     params.PerPage,
		"total_pages":  int(math.Ceil(float64(total) / float64(params.PerPage))),
		"orderby":      params.OrderBy,
		"order":        params.Order,
		"delete_nonce": nonce,
	})
}

// DELETE /api/admin/leads/:id?_wpnonce=
func (ac *AdminController) DeleteLead(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lead id")
	}

	userID, _ := c.Locals("userID").(string)
	if err := ac.nonces.VerifyNonce(userID, middlewares.ActionDeleteLead, c.Query("_wpnonce")); err != nil {
		return err
	}

	if err := ac.leads.DeleteByID(c.UserContext(), uint(id)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "success"})
}

// POST /api/admin/leads/bulk-delete
func (ac *AdminController) BulkDelete(c *fiber.Ctx) error {
	var in BulkDeleteDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	userID, _ := c.Locals("userID").(string)
	if err := ac.nonces.VerifyNonce(userID, middlewares.ActionDeleteLead, in.Nonce); err != nil {
		return err
	}

	deleted, err := ac.leads.DeleteByIDs(c.UserContext(), in.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "success",
		"deleted": deleted,
	})
}

// GET /api/admin/leads/export
func (ac *AdminController) ExportLeads(c *fiber.Ctx) error {
	leads, err := ac.leads.All(c.UserContext())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := services.WriteLeadsXLSX(&buf, leads); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="leads-%s.xlsx"`, time.Now().Format("20060102")))
	return c.Send(buf.Bytes())
}

// GET /api/admin/deliveries
func (ac *AdminController) ListDeliveries(c *fiber.Ctx) error {
	var in DeliveryQueryDTO
	if err := middlewares.QueryAndValidate(c, &in); err != nil {
		return err
	}

	deliveries, total, err := ac.deliveries.List(c.UserContext(), store.DeliveryFilter{
		Connector: in.Connector,
		Status:    in.Status,
		Page:      in.Page,
		PerPage:   in.PerPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"deliveries": deliveries,
		"total":      total,
		"message":    "success",
	})
}
