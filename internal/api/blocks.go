package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tcfw/consentchain/pkg/chain"
)

// ListBlocks serves the full ordered block list and its length. This is
// the contract peers consume during conflict resolution and the tail
// check.
func (s *Server) ListBlocks(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	blocks := c.Blocks()

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"blocks": blocks,
		"length": len(blocks),
	})
}

// GetBlock finds a block by id or by numeric position.
func (s *Server) GetBlock(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	ref := ctx.Param("block")

	var b *chain.Block
	if id, perr := uuid.Parse(ref); perr == nil {
		b, err = c.Block(id)
	} else if idx, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
		b, err = c.BlockAt(idx)
	} else {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid block reference")
	}
	if err != nil {
		return httpError(err)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"chain": c.ID(),
		"block": b,
	})
}

// Mine runs the proof-of-work search against the chain tip, rewards the
// node and seals every pending entry into the new block. Aborting the
// request aborts the search.
func (s *Server) Mine(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()

	last := c.LastBlock()
	proof, err := c.ProveWork(rctx, last)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	// the reward marks this node as the miner
	c.NewTransaction("0", s.n.ID().String(), 1)

	block := c.NewBlock(proof, c.Hash(last))

	if err := s.n.PersistChain(rctx, c); err != nil {
		return httpError(err)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"message":       "New Block Forged",
		"index":         block.Index,
		"transactions":  block.Transactions,
		"consents":      block.Consents,
		"proof":         block.Proof,
		"previous_hash": block.PreviousHash,
	})
}

func (s *Server) NewTransaction(ctx echo.Context) error {
	c, err := s.lookupChain(ctx)
	if err != nil {
		return err
	}

	req := &NewTransactionRequest{}
	if err := ctx.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	index := c.NewTransaction(req.Sender, req.Recipient, req.Amount)

	return ctx.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Transaction will be added to the next block",
		"index":   index,
	})
}
