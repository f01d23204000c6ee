package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.Book)
	api.GET("/appointments", h.List)
	api.GET("/appointments/slots", h.SlotsByQuery)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id", h.Reschedule)
	api.PUT("/appointments/:id/status", h.UpdateStatus)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.GET("/doctors/:id/slots", h.Slots)
	api.GET("/doctors/:id/schedule", h.GetSchedule)
	api.PUT("/doctors/:id/schedule", h.SetSchedule)
}

func (h *Handler) Book(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	callerID := auth.UserUUIDFromContext(ctx)
	role := auth.RoleFromContext(ctx)

	patientID := callerID
	if req.PatientID != nil && *req.PatientID != callerID {
		// Booking on behalf of a patient is a staff operation.
		if !auth.IsStaffRole(role) {
			return echo.NewHTTPError(http.StatusForbidden, "cannot book for another patient")
		}
		patientID = *req.PatientID
	}

	a, err := h.svc.Book(ctx, patientID, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c echo.Context) error {
	f := ListFilter{Status: c.QueryParam("status")}
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = &id
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be formatted YYYY-MM-DD")
		}
		f.From = &d
	}
	if v := c.QueryParam("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be formatted YYYY-MM-DD")
		}
		// Inclusive end date: keep everything starting before the next day.
		end := d.AddDate(0, 0, 1)
		f.To = &end
	}

	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	items, total, err := h.svc.ListFor(ctx, auth.UserUUIDFromContext(ctx), auth.RoleFromContext(ctx),
		f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, id, auth.UserUUIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	a, err := h.svc.UpdateStatus(ctx, id, req, auth.UserUUIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// Reschedule moves an appointment to a new slot or edits its reason/notes.
func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	a, err := h.svc.Reschedule(ctx, id, req, auth.UserUUIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	// The body is optional; cancelling without a reason is fine.
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	a, err := h.svc.Cancel(ctx, id, auth.UserUUIDFromContext(ctx), auth.RoleFromContext(ctx), req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// Slots returns the availability grid for a doctor on the requested date
// (YYYY-MM-DD, defaults to today).
func (h *Handler) Slots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return h.slots(c, doctorID)
}

// SlotsByQuery is the query-parameter form of Slots. Both doctor_id and date
// are required.
func (h *Handler) SlotsByQuery(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	if c.QueryParam("date") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	return h.slots(c, doctorID)
}

func (h *Handler) slots(c echo.Context, doctorID uuid.UUID) error {
	day := time.Now().UTC()
	if d := c.QueryParam("date"); d != "" {
		var err error
		day, err = time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		}
	}

	slots, err := h.svc.Slots(c.Request().Context(), doctorID, day)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"date":      day.Format("2006-01-02"),
		"slots":     slots,
	})
}

func (h *Handler) GetSchedule(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	scheds, err := h.svc.GetSchedule(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, scheds)
}

func (h *Handler) SetSchedule(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sched, err := h.svc.SetSchedule(ctx, doctorID, req, auth.UserUUIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrDoctorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	case errors.Is(err, ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, "slot already booked")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
