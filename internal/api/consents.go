package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tcfw/consentchain/pkg/chain"
)

func (s *Server) LatestConsents(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"chain":    c.ID(),
		"consents": c.Latest(),
	})
}

func (s *Server) ConsentHistory(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"chain":   c.ID(),
		"history": c.History(),
	})
}

func (s *Server) NewConsent(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	req := &NewConsentRequest{}
	if err := ctx.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	action, err := chain.ParseAction(req.Action)
	if err != nil {
		return httpError(err)
	}

	index, err := c.NewConsent(action, *req.Consent, req.Expire)
	if err != nil {
		return httpError(err)
	}

	return ctx.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Consent change will be added to the next block",
		"index":   index,
	})
}
