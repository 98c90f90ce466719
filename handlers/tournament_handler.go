package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"league-system/services"
)

type TournamentHandler struct {
	tournamentService *services.TournamentService
}

func NewTournamentHandler(tournamentService *services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

func (h *TournamentHandler) Register(g *echo.Group) {
	g.POST("/tournaments", h.CreateTournament)
	g.GET("/tournaments", h.ListTournaments)
	g.GET("/tournaments/:tournamentId", h.GetTournament)
	g.POST("/tournaments/:tournamentId/open-registration", h.OpenRegistration)
	g.POST("/tournaments/:tournamentId/start", h.StartTournament)
	g.POST("/tournaments/:tournamentId/complete", h.CompleteTournament)
	g.POST("/tournaments/:tournamentId/cancel", h.CancelTournament)
}

func (h *TournamentHandler) CreateTournament(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		Name   string `json:"name"`
		Season string `json:"season"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	t, err := h.tournamentService.CreateTournament(c.Request().Context(), tenant, req.Name, req.Season)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TournamentHandler) GetTournament(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	t, err := h.tournamentService.GetTournament(c.Request().Context(), tenant, c.PathParam("tournamentId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TournamentHandler) ListTournaments(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	ts, err := h.tournamentService.ListTournaments(c.Request().Context(), tenant)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"tournaments": ts})
}

func (h *TournamentHandler) OpenRegistration(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	t, err := h.tournamentService.OpenRegistration(c.Request().Context(), tenant, c.PathParam("tournamentId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TournamentHandler) StartTournament(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	t, err := h.tournamentService.StartTournament(c.Request().Context(), tenant, c.PathParam("tournamentId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TournamentHandler) CompleteTournament(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		WinnerID string `json:"winner_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	t, err := h.tournamentService.CompleteTournament(c.Request().Context(), tenant, c.PathParam("tournamentId"), req.WinnerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TournamentHandler) CancelTournament(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	t, err := h.tournamentService.CancelTournament(c.Request().Context(), tenant, c.PathParam("tournamentId"), req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
