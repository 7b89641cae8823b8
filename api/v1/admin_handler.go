package v1

import (
	"errors"
	"net/http"

	mwjwt "github.com/drukhealth/ctgadmin/middleware/jwt"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/auth"
	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	admins *admins.Service
}

func NewAdminHandler(adminService *admins.Service) *AdminHandler {
	return &AdminHandler{admins: adminService}
}

func (h *AdminHandler) List(c echo.Context) error {
	list, err := h.admins.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ListResponse{Success: true, Count: len(list), Data: list})
}

func (h *AdminHandler) Create(c echo.Context) error {
	var in admins.CreateInput
	if err := c.Bind(&in); err != nil {
		return badRequest("Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	admin, err := h.admins.Create(c.Request().Context(), in)
	if err != nil {
		return adminError(err)
	}
	return c.JSON(http.StatusCreated, DataResponse{Success: true, Message: "Admin created", Data: admin})
}

func (h *AdminHandler) Get(c echo.Context) error {
	id, err := parseID(c, "admin")
	if err != nil {
		return err
	}

	admin, err := h.admins.Get(c.Request().Context(), id)
	if err != nil {
		return adminError(err)
	}
	return c.JSON(http.StatusOK, DataResponse{Success: true, Data: admin})
}

func (h *AdminHandler) Update(c echo.Context) error {
	id, err := parseID(c, "admin")
	if err != nil {
		return err
	}

	var in admins.UpdateInput
	if err := c.Bind(&in); err != nil {
		return badRequest("Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	admin, err := h.admins.Update(c.Request().Context(), id, in)
	if err != nil {
		return adminError(err)
	}
	return c.JSON(http.StatusOK, DataResponse{Success: true, Message: "Admin updated", Data: admin})
}

func (h *AdminHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "admin")
	if err != nil {
		return err
	}

	if err := h.admins.Delete(c.Request().Context(), mwjwt.GetAdminID(c), id); err != nil {
		return adminError(err)
	}
	return ok(c, "Admin deleted")
}

func adminError(err error) error {
	var policy *auth.PolicyError
	switch {
	case errors.As(err, &policy):
		return badRequest(sentence(policy))
	case errors.Is(err, admins.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Admin not found")
	case errors.Is(err, admins.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, "Admin already exists with this email")
	case errors.Is(err, admins.ErrEmailRequired),
		errors.Is(err, admins.ErrPasswordRequired),
		errors.Is(err, admins.ErrInvalidRole):
		return badRequest(sentence(err))
	case errors.Is(err, admins.ErrCannotDeleteSelf), errors.Is(err, admins.ErrLastSuperAdmin):
		return echo.NewHTTPError(http.StatusConflict, sentence(err))
	default:
		return err
	}
}
