package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tcfw/consentchain/pkg/chain"
)

type frontpageResponse struct {
	Description string    `json:"description"`
	Node        string    `json:"node"`
	Links       []apiLink `json:"links"`
}

type apiLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Frontpage reports the node's identity. Peers read this endpoint to
// resolve each other's ids.
func (s *Server) Frontpage(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, frontpageResponse{
		Description: "Consent chain node",
		Node:        s.n.ID().String(),
		Links: []apiLink{
			{Rel: "chains", Href: "/chains"},
			{Rel: "nodes", Href: "/nodes"},
			{Rel: "self", Href: "/"},
		},
	})
}

func (s *Server) ListChains(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"chains": s.n.Chains().IDs(),
		"length": s.n.Chains().Len(),
	})
}

func (s *Server) CreateChain(ctx echo.Context) error {
	c, err := s.n.CreateChain(ctx.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return ctx.JSON(http.StatusCreated, map[string]interface{}{
		"message": "New chain created",
		"chain":   c.View(false),
	})
}

func (s *Server) GetChain(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	detail := ctx.QueryParam("detail") == "true"

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"chain":  c.View(detail),
		"length": c.Len(),
	})
}

// Resolve runs conflict resolution for one chain against the registered
// peers, or only the cheap tail check when ?check=true.
func (s *Server) Resolve(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	peers := s.n.Peers()

	if ctx.QueryParam("check") == "true" {
		return ctx.JSON(http.StatusOK, map[string]interface{}{
			"chain":      c.ID(),
			"consistent": c.Verify(rctx, peers),
		})
	}

	replaced, validated := c.ResolveConflicts(rctx, peers)

	if replaced {
		if err := s.n.PersistChain(rctx, c); err != nil {
			return httpError(err)
		}
	}

	views := make([]chain.PeerView, 0, len(validated))
	for _, p := range validated {
		views = append(views, p.View(rctx))
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"chain":     c.ID(),
		"replaced":  replaced,
		"validated": views,
		"length":    c.Len(),
	})
}
