package server

import (
	"net/http"
	"time"

	"heatwarden2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type boostBody struct {
	Temperature     *float64 `json:"temperature"`
	DurationMinutes *uint    `json:"duration_minutes"`
}

type modeBody struct {
	Mode string `json:"mode"`
}

type zoneTemperatureBody struct {
	Temperature float64 `json:"temperature"`
}

type ignoreOverrideBody struct {
	Ignore bool `json:"ignore"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/state", s.StateHandler)
	e.POST("/zone/:zone/room/:room/boost", s.SetBoostHandler)
	e.DELETE("/zone/:zone/room/:room/boost", s.ClearBoostHandler)
	e.POST("/zone/:zone/room/:room/ignore_override", s.IgnoreOverrideHandler)
	e.POST("/zone/:zone/temperature", s.ZoneTemperatureHandler)
	e.POST("/mode", s.ModeHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.controllerActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StateHandler(c echo.Context) error {
	res, err := s.request(domain.GetControllerStateRequest{})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetControllerStateResponse)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) SetBoostHandler(c echo.Context) error {
	var body boostBody
	if err := c.Bind(&body); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	req := domain.SetBoostRequest{
		ZoneID:      c.Param("zone"),
		RoomID:      c.Param("room"),
		Temperature: body.Temperature,
	}
	if body.DurationMinutes != nil {
		d := time.Duration(*body.DurationMinutes) * time.Minute
		req.Duration = &d
	}
	res, err := s.request(req)
	if err != nil {
		return c.String(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.SetBoostResponse)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	if response.HasResponseError() {
		return c.String(http.StatusBadRequest, response.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, response.Boost)
}

func (s *Server) ClearBoostHandler(c echo.Context) error {
	res, err := s.request(domain.ClearBoostRequest{
		ZoneID: c.Param("zone"),
		RoomID: c.Param("room"),
	})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.ClearBoostResponse)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	if response.HasResponseError() {
		return c.String(http.StatusBadRequest, response.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) IgnoreOverrideHandler(c echo.Context) error {
	var body ignoreOverrideBody
	if err := c.Bind(&body); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	res, err := s.request(domain.IgnoreManualOverrideRequest{
		ZoneID: c.Param("zone"),
		RoomID: c.Param("room"),
		Ignore: body.Ignore,
	})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.IgnoreManualOverrideResponse)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	if response.HasResponseError() {
		return c.String(http.StatusBadRequest, response.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) ZoneTemperatureHandler(c echo.Context) error {
	var body zoneTemperatureBody
	if err := c.Bind(&body); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	res, err := s.request(domain.SetZoneTemperatureRequest{
		ZoneID:      c.Param("zone"),
		Temperature: body.Temperature,
	})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.SetZoneTemperatureResponse)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	if response.HasResponseError() {
		return c.String(http.StatusBadRequest, response.GetResponseError().Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) ModeHandler(c echo.Context) error {
	var body modeBody
	if err := c.Bind(&body); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	res, err := s.request(domain.SetModeRequest{
		Mode: domain.GlobalMode(body.Mode),
	})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.SetModeResponse)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	if response.HasResponseError() {
		return c.String(http.StatusBadRequest, response.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) request(msg any) (any, error) {
	return s.rootContext.RequestFuture(s.controllerActor, msg, 10*time.Second).Result()
}
