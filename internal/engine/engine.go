// Package engine holds the functions difflens hosts in worker-pool workers:
// text normalization, word-level text diff, content hashing and scroll map
// construction.
package engine

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zjrosen/difflens/internal/scrollmap"
	"github.com/zjrosen/difflens/internal/workerpool"
)

// Hosted function names.
const (
	FnNormalizeText  = "normalizeText"
	FnDiffText       = "diffText"
	FnHashBytes      = "hashBytes"
	FnBuildScrollMap = "buildScrollMap"
)

// NormalizeArgs are the args of normalizeText.
type NormalizeArgs struct {
	Text    string         `json:"text"`
	Options NormalizeFlags `json:"options"`
}

// DiffArgs are the args of diffText.
type DiffArgs struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Register adds every engine function to reg.
func Register(reg *workerpool.Registry) {
	reg.Register(FnNormalizeText, func(_ context.Context, args json.RawMessage, _ [][]byte) (any, [][]byte, error) {
		a, err := workerpool.DecodeArgs[NormalizeArgs](args)
		if err != nil {
			return nil, nil, err
		}
		return NormalizeText(a.Text, a.Options), nil, nil
	})

	reg.Register(FnDiffText, func(ctx context.Context, args json.RawMessage, _ [][]byte) (any, [][]byte, error) {
		a, err := workerpool.DecodeArgs[DiffArgs](args)
		if err != nil {
			return nil, nil, err
		}
		d, err := DiffText(ctx, a.Left, a.Right)
		if err != nil {
			return nil, nil, err
		}
		return d, nil, nil
	})

	reg.Register(FnHashBytes, func(_ context.Context, _ json.RawMessage, bufs [][]byte) (any, [][]byte, error) {
		if len(bufs) == 0 {
			return nil, nil, errors.New("hashBytes: no buffers transferred")
		}
		// Buffers go back so the caller regains ownership.
		return HashBytes(bufs), bufs, nil
	})

	reg.Register(FnBuildScrollMap, func(_ context.Context, args json.RawMessage, _ [][]byte) (any, [][]byte, error) {
		in, err := workerpool.DecodeArgs[scrollmap.Input](args)
		if err != nil {
			return nil, nil, err
		}
		return scrollmap.Build(in), nil, nil
	})
}

// NewRegistry returns a registry hosting the engine functions.
func NewRegistry() *workerpool.Registry {
	reg := workerpool.NewRegistry()
	Register(reg)
	return reg
}
