package api

import (
	goerrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
	"github.com/shinmj/reservecheck/internal/repository"
	"github.com/shinmj/reservecheck/internal/service"
)

// ReservationHandler exposes the reservation operations over HTTP.
type ReservationHandler struct {
	svc *service.ReservationService
}

// NewReservationHandler creates the handler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type saveRequest struct {
	ItemID         int64     `json:"reserveItemId"`
	LocationID     int64     `json:"locationId"`
	CategoryID     string    `json:"categoryId"`
	Quantity       int       `json:"reserveQty"`
	Purpose        string    `json:"reservePurposeContent"`
	AttachmentCode string    `json:"attachmentCode"`
	StartDate      time.Time `json:"reserveStartDate"`
	EndDate        time.Time `json:"reserveEndDate"`
	UserID         string    `json:"userId"`
	UserContactNo  string    `json:"userContactNo"`
	UserEmail      string    `json:"userEmail"`
}

type updateRequest struct {
	Quantity       int       `json:"reserveQty"`
	Purpose        string    `json:"reservePurposeContent"`
	AttachmentCode string    `json:"attachmentCode"`
	StartDate      time.Time `json:"reserveStartDate"`
	EndDate        time.Time `json:"reserveEndDate"`
	UserContactNo  string    `json:"userContactNo"`
	UserEmail      string    `json:"userEmail"`
}

type reservationResponse struct {
	ID             string                  `json:"reserveId"`
	ItemID         int64                   `json:"reserveItemId"`
	Item           *domain.ReservationItem `json:"reserveItem,omitempty"`
	LocationID     int64                   `json:"locationId"`
	CategoryID     string                  `json:"categoryId"`
	Quantity       int                     `json:"reserveQty"`
	Purpose        string                  `json:"reservePurposeContent"`
	AttachmentCode string                  `json:"attachmentCode,omitempty"`
	StartDate      time.Time               `json:"reserveStartDate"`
	EndDate        time.Time               `json:"reserveEndDate"`
	Status         string                  `json:"reserveStatusId"`
	UserID         string                  `json:"userId"`
	UserContactNo  string                  `json:"userContactNo,omitempty"`
	UserEmail      string                  `json:"userEmail,omitempty"`
}

type pageResponse struct {
	Items      []reservationResponse `json:"items"`
	TotalCount int                   `json:"totalCount"`
	Page       int                   `json:"page"`
	Size       int                   `json:"size"`
}

type windowCountResponse struct {
	ID        string    `json:"reserveId"`
	Quantity  int       `json:"reserveQty"`
	StartDate time.Time `json:"reserveStartDate"`
	EndDate   time.Time `json:"reserveEndDate"`
	Status    string    `json:"reserveStatusId"`
}

func toResponse(res *domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:             res.ID,
		ItemID:         res.ItemID,
		Item:           res.Item,
		LocationID:     res.LocationID,
		CategoryID:     res.CategoryID,
		Quantity:       res.Quantity,
		Purpose:        res.Purpose,
		AttachmentCode: res.AttachmentCode,
		StartDate:      res.StartDate,
		EndDate:        res.EndDate,
		Status:         string(res.Status),
		UserID:         res.UserID,
		UserContactNo:  res.UserContactNo,
		UserEmail:      res.UserEmail,
	}
}

// Search handles GET /api/v1/reserves
func (h *ReservationHandler) Search(c echo.Context) error {
	filter, page := parseSearch(c)
	result, err := h.svc.Search(c.Request().Context(), filter, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPageResponse(result, page))
}

// SearchForUser handles GET /api/v1/users/:userId/reserves. Users may
// only list their own reservations; admins may list anyone's.
func (h *ReservationHandler) SearchForUser(c echo.Context) error {
	userID := c.Param("userId")
	p := CurrentPrincipal(c)
	if !p.IsAdmin() && (!p.Authenticated || p.ID != userID) {
		return writeError(c, errors.Forbidden("cannot list another user's reservations"))
	}

	filter, page := parseSearch(c)
	result, err := h.svc.SearchForUser(c.Request().Context(), filter, page, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPageResponse(result, page))
}

// FindByID handles GET /api/v1/reserves/:id
func (h *ReservationHandler) FindByID(c echo.Context) error {
	res, err := h.svc.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(res))
}

// Create handles POST /api/v1/reserves
func (h *ReservationHandler) Create(c echo.Context) error {
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.svc.Create(c.Request().Context(), service.CreateRequest{
		ItemID:         req.ItemID,
		LocationID:     req.LocationID,
		CategoryID:     req.CategoryID,
		Quantity:       req.Quantity,
		Purpose:        req.Purpose,
		AttachmentCode: req.AttachmentCode,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		UserID:         req.UserID,
		UserContactNo:  req.UserContactNo,
		UserEmail:      req.UserEmail,
	}, CurrentPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toResponse(res))
}

// Update handles PUT /api/v1/reserves/:id
func (h *ReservationHandler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	_, err := h.svc.Update(c.Request().Context(), c.Param("id"), domain.Patch{
		Quantity:       req.Quantity,
		Purpose:        req.Purpose,
		AttachmentCode: req.AttachmentCode,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		UserContactNo:  req.UserContactNo,
		UserEmail:      req.UserEmail,
	}, CurrentPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Cancel handles PUT /api/v1/reserves/cancel/:id
func (h *ReservationHandler) Cancel(c echo.Context) error {
	if err := h.svc.Cancel(c.Request().Context(), c.Param("id"), CurrentPrincipal(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Approve handles PUT /api/v1/reserves/approve/:id
func (h *ReservationHandler) Approve(c echo.Context) error {
	if err := h.svc.Approve(c.Request().Context(), c.Param("id"), CurrentPrincipal(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListForItemInWindow handles GET /api/v1/reserves/:id/dates
func (h *ReservationHandler) ListForItemInWindow(c echo.Context) error {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("startDate"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid startDate"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("endDate"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid endDate"})
	}

	items, err := h.svc.ListForItemInWindow(c.Request().Context(), itemID, start, end)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]windowCountResponse, 0, len(items))
	for _, res := range items {
		out = append(out, windowCountResponse{
			ID:        res.ID,
			Quantity:  res.Quantity,
			StartDate: res.StartDate,
			EndDate:   res.EndDate,
			Status:    string(res.Status),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func parseSearch(c echo.Context) (repository.Filter, repository.Page) {
	filter := repository.Filter{
		CategoryID: c.QueryParam("categoryId"),
		Status:     domain.Status(c.QueryParam("status")),
		Keyword:    c.QueryParam("keyword"),
	}
	if itemID, err := strconv.ParseInt(c.QueryParam("reserveItemId"), 10, 64); err == nil {
		filter.ItemID = itemID
	}

	page := repository.Page{Size: 20}
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		page.Number = n
	}
	if s, err := strconv.Atoi(c.QueryParam("size")); err == nil && s > 0 {
		page.Size = s
	}
	return filter, page
}

func toPageResponse(result *service.PagedResult, page repository.Page) pageResponse {
	items := make([]reservationResponse, 0, len(result.Items))
	for _, res := range result.Items {
		items = append(items, toResponse(res))
	}
	return pageResponse{
		Items:      items,
		TotalCount: result.Total,
		Page:       page.Number,
		Size:       page.Size,
	}
}

// writeError maps the business error taxonomy onto HTTP status codes.
// Catalog unavailability never reaches this point; the admissibility
// checker swallows it.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch errors.KindOf(err) {
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindForbidden:
		status = http.StatusForbidden
	case errors.KindIllegalTransition:
		status = http.StatusConflict
	case errors.KindInsufficientInventory, errors.KindOutOfWindow, errors.KindValidation:
		status = http.StatusBadRequest
	}

	body := echo.Map{"error": err.Error()}
	var be *errors.BusinessError
	if goerrors.As(err, &be) {
		body = echo.Map{"error": be.Message, "code": be.Code}
		if be.Kind == errors.KindInsufficientInventory {
			body["available"] = be.Available
		}
	}
	return c.JSON(status, body)
}
