package services

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type ParameterProvider interface {
	// GetParameters never fails; anything unusable falls back to the defaults.
	GetParameters(ctx context.Context, kcID uuid.UUID) types.BktParameters
	Defaults() types.BktParameters
}

type parameterProvider struct {
	log      *logger.Logger
	defaults types.BktParameters
	source   KCConfigSource
	group    singleflight.Group
}

// NewParameterProvider rejects defaults outside [0,1]. source may be nil, in
// which case every KC gets the defaults.
func NewParameterProvider(log *logger.Logger, defaults types.BktParameters, source KCConfigSource) (ParameterProvider, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	return &parameterProvider{
		log:      log.With("service", "ParameterProvider"),
		defaults: defaults,
		source:   source,
	}, nil
}

func (p *parameterProvider) Defaults() types.BktParameters { return p.defaults }

func (p *parameterProvider) GetParameters(ctx context.Context, kcID uuid.UUID) types.BktParameters {
	if p.source == nil || kcID == uuid.Nil {
		return p.defaults
	}
	// Collapsed callers share this result, so the lookup must not inherit
	// the first caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := p.group.Do(kcID.String(), func() (interface{}, error) {
		return p.resolve(flightCtx, kcID), nil
	})
	return v.(types.BktParameters)
}

func (p *parameterProvider) resolve(ctx context.Context, kcID uuid.UUID) types.BktParameters {
	fields := append([]interface{}{"kc_id", kcID.String()}, ctxutil.LogFields(ctx)...)

	overrides, err := p.source.GetParameterOverrides(ctx, kcID)
	if err != nil {
		p.log.Warn("bkt override lookup failed; using defaults", append(fields, "error", err)...)
		return p.defaults
	}
	if overrides.IsEmpty() {
		return p.defaults
	}
	clean, errs := overrides.Sanitized()
	for _, e := range errs {
		p.log.Warn("ignoring invalid stored bkt override", append(fields, "error", e)...)
	}
	return clean.Apply(p.defaults)
}
