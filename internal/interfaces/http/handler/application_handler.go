package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apprental "github.com/rentals/backend/internal/application/rental"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/interfaces/http/dto"
	"github.com/rentals/backend/internal/interfaces/http/middleware"
)

// ApplicationService is the application-layer surface the handler drives
type ApplicationService interface {
	UpdateStatus(ctx context.Context, cmd apprental.UpdateStatusCommand) (*apprental.ApplicationResult, error)
	GetApplication(ctx context.Context, id uuid.UUID, principal rental.Principal) (*apprental.ApplicationResult, error)
}

// ApplicationHandler serves the rental application endpoints
type ApplicationHandler struct {
	BaseHandler
	service  ApplicationService
	validate *validator.Validate
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(service ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		service:  service,
		validate: middleware.NewValidator(),
	}
}

// UpdateStatus handles PATCH /applications/:id/status
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !h.decodeStrict(c, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.ValidationError(c, middleware.ValidationDetails(err))
		return
	}

	result, err := h.service.UpdateStatus(c.Request.Context(), apprental.UpdateStatusCommand{
		ApplicationID:   id,
		RequestedStatus: req.Status,
		Principal:       principal,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toApplicationEnvelope(result))
}

// GetApplication handles GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	result, err := h.service.GetApplication(c.Request.Context(), id, principal)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toApplicationEnvelope(result))
}

func (h *ApplicationHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeValidation, "Application id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ApplicationHandler) principal(c *gin.Context) (rental.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return rental.Principal{}, false
	}
	return p, true
}

// decodeStrict decodes exactly one JSON object into dst, rejecting unknown
// fields and trailing data. It writes the error response itself.
func (h *ApplicationHandler) decodeStrict(c *gin.Context, dst any) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil {
		if dec.Decode(&struct{}{}) != io.EOF {
			h.BadRequest(c, dto.ErrCodeInvalidJSON, "Request body must contain a single JSON object")
			return false
		}
		return true
	}

	var (
		maxBytesErr *http.MaxBytesError
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBodyTooLarge, "Request body exceeds maximum allowed size")
	case errors.Is(err, io.EOF):
		h.BadRequest(c, dto.ErrCodeInvalidJSON, "Request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		h.BadRequest(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	case errors.As(err, &typeErr):
		h.ValidationError(c, []dto.ValidationDetail{{Field: typeErr.Field, Message: "Must be a " + typeErr.Type.String()}})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		h.ValidationError(c, []dto.ValidationDetail{{Field: field, Message: "Unknown field"}})
	default:
		h.BadRequest(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	}
	return false
}

func toApplicationEnvelope(r *apprental.ApplicationResult) dto.ApplicationEnvelope {
	app := r.Application
	view := dto.ApplicationView{
		ID:        app.ID.String(),
		Status:    app.Status.String(),
		AppliedAt: app.AppliedAt,
	}
	if p := r.Property; p != nil {
		view.Property = dto.PropertyView{
			ID:           p.ID.String(),
			ManagerID:    p.ManagerID.String(),
			Title:        p.Title,
			Address:      p.Address,
			MonthlyPrice: p.MonthlyPrice,
		}
		if view.Property.MonthlyPrice == nil {
			view.Property.MonthlyPrice = p.LegacyPrice
		}
	}
	if room := r.Room; room != nil {
		view.Room = &dto.RoomView{ID: room.ID.String(), Name: room.Name}
	}
	if t := r.Tenant; t != nil {
		view.Tenant = &dto.TenantView{ID: t.ID.String(), Name: t.Name, Email: t.Email}
	}

	env := dto.ApplicationEnvelope{Application: view}
	if l := r.Lease; l != nil {
		lv := &dto.LeaseView{
			ID:            l.ID.String(),
			PropertyID:    l.PropertyID.String(),
			TenantID:      l.TenantID.String(),
			StartDate:     l.StartDate,
			EndDate:       l.EndDate,
			RentAmount:    l.RentAmount,
			DepositAmount: l.DepositAmount,
		}
		if l.ApplicationID != nil {
			s := l.ApplicationID.String()
			lv.ApplicationID = &s
		}
		env.Lease = lv
	}
	return env
}
