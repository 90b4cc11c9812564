package chain

import "github.com/pkg/errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")

	ErrInvalidChain    = errors.New("not a chain")
	ErrUnknownAction   = errors.New("unknown consent action")
	ErrEmptyChain      = errors.New("chain has no blocks")
	ErrPeerUnreachable = errors.New("peer unreachable")
	ErrPeerResponse    = errors.New("unexpected peer response")
)
