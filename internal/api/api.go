package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tcfw/consentchain/internal/utils/logging"
	"github.com/tcfw/consentchain/pkg/chain"
	"github.com/tcfw/consentchain/pkg/node"
)

// Server exposes the node over HTTP: chain reads and mutations, the
// block list contract peers fetch during conflict resolution, and the
// peer registry.
type Server struct {
	n        node.Node
	e        *echo.Echo
	validate *validator.Validate
}

func NewServer(n node.Node) *Server {
	s := &Server{
		n:        n,
		e:        echo.New(),
		validate: validator.New(),
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.e.Use(requestLogger)

	s.routes()

	return s
}

func (s *Server) routes() {
	s.e.GET("/", s.Frontpage)

	s.e.GET("/nodes", s.ListNodes)
	s.e.POST("/nodes", s.RegisterNodes)

	s.e.GET("/chains", s.ListChains)
	s.e.POST("/chains", s.CreateChain)
	s.e.GET("/chains/:chain", s.GetChain)
	s.e.GET("/chains/:chain/blocks", s.ListBlocks)
	s.e.GET("/chains/:chain/blocks/:block", s.GetBlock)
	s.e.GET("/chains/:chain/mine", s.Mine)
	s.e.POST("/chains/:chain/transactions", s.NewTransaction)
	s.e.GET("/chains/:chain/consents", s.LatestConsents)
	s.e.POST("/chains/:chain/consents", s.NewConsent)
	s.e.GET("/chains/:chain/consents/history", s.ConsentHistory)
	s.e.GET("/chains/:chain/resolve", s.Resolve)
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		err := next(ctx)
		if err != nil {
			ctx.Error(err)
		}

		logging.WithFields(logging.Fields{
			"method": ctx.Request().Method,
			"path":   ctx.Request().URL.Path,
			"status": ctx.Response().Status,
		}).Debug("request")

		return err
	}
}

func (s *Server) Start(listen string) error {
	logging.WithField("listen", listen).Info("serving api")
	return s.e.Start(listen)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// httpError maps the error taxonomy onto status codes: unknown
// references are 404, malformed ones 400, everything else 500.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, chain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, chain.ErrInvalidReference), errors.Is(err, chain.ErrUnknownAction):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// lookupChain resolves the :chain path parameter.
func (s *Server) lookupChain(ctx echo.Context) (*chain.Chain, error) {
	c, err := s.n.Chains().GetRef(ctx.Param("chain"))
	if err != nil {
		return nil, httpError(err)
	}
	return c, nil
}
