package app

import (
	"fmt"

	"github.com/yungbote/neurobridge-mastery/internal/data/kcconfig"
	masteryrepo "github.com/yungbote/neurobridge-mastery/internal/data/repos/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type Services struct {
	Params    services.ParameterProvider
	Store     services.KnowledgeStateStore
	Recommend services.RecommendationService
	Pipeline  services.ResponsePipeline
	Mastery   services.MasteryService
}

// Optional collaborators; nil values fall back to in-process behaviour.
type serviceDeps struct {
	locker   services.KeyLocker
	notifier services.MasteryNotifier
	observer services.PipelineObserver
}

func wireServices(log *logger.Logger, cfg Config, gw *masteryrepo.Gateway, deps serviceDeps) (Services, error) {
	log.Info("Wiring services...")

	var source services.KCConfigSource = gw
	if cfg.KCParamsFile != "" {
		file, err := kcconfig.LoadFile(cfg.KCParamsFile)
		if err != nil {
			return Services{}, fmt.Errorf("load kc params: %w", err)
		}
		log.Info("kc parameter file loaded", "path", cfg.KCParamsFile, "entries", len(file.Entries))
		// Database overrides edited at runtime win over the file.
		source = kcconfig.Chain{file, gw}
	}

	params, err := services.NewParameterProvider(log, cfg.BktDefaults, source)
	if err != nil {
		return Services{}, err
	}
	store := services.NewKnowledgeStateStore(log, gw, params, deps.locker)
	recommend := services.NewRecommendationService(log, store, gw, gw)

	var opts []services.PipelineOption
	if deps.notifier != nil {
		opts = append(opts, services.WithNotifier(deps.notifier))
	}
	if deps.observer != nil {
		opts = append(opts, services.WithObserver(deps.observer))
	}
	pipeline := services.NewResponsePipeline(log, gw, store, gw, gw, cfg.Thresholds, opts...)

	return Services{
		Params:    params,
		Store:     store,
		Recommend: recommend,
		Pipeline:  pipeline,
		Mastery:   services.NewMasteryService(log, params, store, recommend, pipeline),
	}, nil
}
