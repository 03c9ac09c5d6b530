package cmd

import (
	"errors"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/dates"
	"github.com/KaramelBytes/dssatview/internal/dssat"
	"github.com/KaramelBytes/dssatview/internal/loader"
	"github.com/KaramelBytes/dssatview/internal/logging"
	"github.com/KaramelBytes/dssatview/internal/pipeline"
	"github.com/KaramelBytes/dssatview/internal/render"
	"github.com/KaramelBytes/dssatview/internal/scale"
	"github.com/KaramelBytes/dssatview/internal/varinfo"
	"github.com/KaramelBytes/dssatview/internal/views"
)

// app holds the collaborators built from configuration for one command.
type app struct {
	log      *zap.Logger
	loader   *loader.Loader
	resolver *dssat.Resolver
	catalog  *varinfo.Catalog
	engine   *pipeline.Engine
	runner   *pipeline.Runner
	views    *views.Store
	draw     render.Options
}

func newApp() (*app, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	log := logging.Must(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	policy, err := scale.ParsePolicy(cfg.ScalePolicy)
	if err != nil {
		return nil, err
	}
	a := &app{log: log}
	a.loader = loader.New(loader.WithLogger(log), loader.WithMetrics(stats))
	a.resolver = dssat.NewResolver(dssat.Options{
		Base:      cfg.DSSATBase,
		DetailCDE: cfg.DetailCDE,
		DSSATPro:  cfg.DSSATProFile,
		Overrides: cfg.Folders,
		Log:       log,
	})
	a.catalog = varinfo.NewCatalog(varinfo.DataCDE{}, cfg.DataCDE,
		varinfo.WithCacheSizes(cfg.VarInfoCacheSize, cfg.VarInfoLookupCacheSize),
		varinfo.WithLogger(log))
	opt := pipeline.DefaultOptions()
	opt.Scale = scale.Options{TargetMin: cfg.TargetMin, TargetMax: cfg.TargetMax, Policy: policy}
	opt.ReportR2 = cfg.ReportR2
	opt.CacheCapacity = cfg.CacheCapacity
	opt.Log = log
	opt.Metrics = stats
	a.engine = pipeline.New(a.loader, a.resolver, a.catalog, dates.NewUnifier(cfg.DateCacheSize, log), opt)
	a.runner = pipeline.NewRunner(log)
	a.views = views.NewStore(cfg.ViewsDir)
	a.draw = render.Options{BatchSize: cfg.RenderBatchSize, MaxPoints: cfg.MaxPoints}
	return a, nil
}

func (a *app) close() { _ = a.log.Sync() }

// treatmentNames reads names from the experiment file; failures only log.
func (a *app) treatmentNames(folder, experiment string) map[string]string {
	if experiment == "" {
		return nil
	}
	names, err := a.resolver.TreatmentNames(folder, experiment)
	if err != nil {
		a.log.Warn("treatment names unavailable", zap.String("experiment", experiment), zap.Error(err))
		return nil
	}
	return names
}
