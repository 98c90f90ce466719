package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"league-system/models"
	"league-system/services"
)

type MatchHandler struct {
	matchService *services.MatchService
}

func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Register(g *echo.Group) {
	g.POST("/matches", h.CreateMatch)
	g.GET("/matches", h.ListMatches)
	g.GET("/matches/:matchId", h.GetMatch)
	g.POST("/matches/:matchId/start", h.StartMatch)
	g.POST("/matches/:matchId/end", h.EndMatch)
	g.POST("/matches/:matchId/abandon", h.AbandonMatch)
}

func (h *MatchHandler) CreateMatch(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		TournamentID  string     `json:"tournament_id"`
		TeamAID       string     `json:"team_a_id"`
		TeamBID       string     `json:"team_b_id"`
		VenueID       string     `json:"venue_id"`
		MatchType     string     `json:"match_type"`
		ScheduledDate *time.Time `json:"scheduled_date"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	match, err := h.matchService.CreateMatch(c.Request().Context(), services.CreateMatchRequest{
		TenantID:      tenant,
		TournamentID:  req.TournamentID,
		TeamAID:       req.TeamAID,
		TeamBID:       req.TeamBID,
		VenueID:       req.VenueID,
		MatchType:     models.MatchType(req.MatchType),
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, match)
}

func (h *MatchHandler) GetMatch(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	match, err := h.matchService.GetMatch(c.Request().Context(), tenant, c.PathParam("matchId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, match)
}

func (h *MatchHandler) ListMatches(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	matches, err := h.matchService.ListMatches(c.Request().Context(), tenant)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"matches": matches})
}

func (h *MatchHandler) StartMatch(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		TossWinnerID string `json:"toss_winner_id"`
		TossDecision string `json:"toss_decision"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	match, err := h.matchService.StartMatch(c.Request().Context(), tenant, c.PathParam("matchId"), req.TossWinnerID, req.TossDecision)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, match)
}

func (h *MatchHandler) EndMatch(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		WinnerID string `json:"winner_id"`
		Result   string `json:"result"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	match, err := h.matchService.EndMatch(c.Request().Context(), tenant, c.PathParam("matchId"), req.WinnerID, req.Result)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, match)
}

func (h *MatchHandler) AbandonMatch(c echo.Context) error {
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

	match, err := h.matchService.AbandonMatch(c.Request().Context(), tenant, c.PathParam("matchId"), req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, match)
}
