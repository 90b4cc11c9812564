package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tcfw/consentchain/pkg/chain"
)

func (s *Server) ListNodes(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	peers := s.n.Peers()
	views := make([]chain.PeerView, 0, len(peers))
	for _, p := range peers {
		views = append(views, p.View(rctx))
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"nodes": views,
	})
}

func (s *Server) RegisterNodes(ctx echo.Context) error {
	req := &RegisterNodesRequest{}
	if err := ctx.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	added, err := s.n.AddPeers(ctx.Request().Context(), req.Nodes)
	if err != nil {
		return httpError(err)
	}

	rctx := ctx.Request().Context()
	views := make([]chain.PeerView, 0, len(added))
	for _, p := range added {
		views = append(views, p.View(rctx))
	}

	return ctx.JSON(http.StatusCreated, map[string]interface{}{
		"message": "New nodes have been added",
		"nodes":   views,
	})
}
