package kcconfig

import (
	"context"
	"errors"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

type Source interface {
	GetParameterOverrides(ctx context.Context, kcID uuid.UUID) (*types.ParameterOverrides, error)
}

// Chain merges sources field by field; later sources win. A failing source
// is skipped as long as another one answered.
type Chain []Source

func (c Chain) GetParameterOverrides(ctx context.Context, kcID uuid.UUID) (*types.ParameterOverrides, error) {
	var (
		merged   *types.ParameterOverrides
		errs     []error
		answered bool
	)
	for _, src := range c {
		if src == nil {
			continue
		}
		o, err := src.GetParameterOverrides(ctx, kcID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		answered = true
		merged = merge(merged, o)
	}
	if !answered && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return merged, nil
}

func merge(base, top *types.ParameterOverrides) *types.ParameterOverrides {
	if top.IsEmpty() {
		return base
	}
	out := &types.ParameterOverrides{}
	if base != nil {
		*out = *base
	}
	if top.PInitial != nil {
		out.PInitial = top.PInitial
	}
	if top.PTransit != nil {
		out.PTransit = top.PTransit
	}
	if top.PSlip != nil {
		out.PSlip = top.PSlip
	}
	if top.PGuess != nil {
		out.PGuess = top.PGuess
	}
	return out
}
