package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"gearsel/internal/cache"
	"gearsel/internal/catalog"
	"gearsel/internal/matching"
	"gearsel/internal/metrics"
	"gearsel/internal/pricing"
	"gearsel/internal/scoring"
	"gearsel/internal/selection"
	"gearsel/internal/state"
)

var (
	selReq      selection.Requirement
	selSeries   string
	selCatalog  string
	selUseCache bool
	selTopN     int
)

type selectRequest struct {
	selection.Requirement
	Series string `json:"series,omitempty"`
	TopN   int    `json:"topN"`
}

// loadSelectionCatalog reads --catalog, or the configured store. The version
// is a hash of the canonical catalog, so any rebuild that changes a record
// changes it, snapshot or not.
func loadSelectionCatalog() (catalog.Catalog, string, error) {
	var cat catalog.Catalog
	if selCatalog != "" {
		c, _, err := readCatalog(selCatalog)
		if err != nil {
			return c, "", err
		}
		cat = c
	} else {
		st, closeStore, err := state.Open(cfg.Store.Backend, cfg.Store.Dir)
		if err != nil {
			return catalog.Catalog{}, "", err
		}
		defer closeStore()
		if cat, err = state.LoadCatalog(st); err != nil {
			return cat, "", err
		}
	}
	version, err := catalogVersion(cat)
	return cat, version, err
}

func catalogVersion(cat catalog.Catalog) (string, error) {
	data, err := json.Marshal(cat)
	if err != nil {
		return "", errors.Wrap(err, "encode catalog version")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

func selectionCache(ctx context.Context, version string) *cache.SelectionCache {
	var client cache.Client = cache.NewMemoryClient()
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-process cache")
		} else {
			client = rc
		}
	}
	return cache.NewSelectionCache(client, cfg.Redis.TTL, version)
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select a gearbox with matching coupling and standby pump",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if selReq.WorkCondition == "" {
			selReq.WorkCondition = cfg.Selection.WorkCondition
		}
		if !cmd.Flags().Changed("temperature") {
			selReq.Temperature = cfg.Selection.Temperature
		}
		topN := cfg.Selection.TopN
		if selTopN > 0 {
			topN = selTopN
		}
		req := selectRequest{Requirement: selReq, Series: selSeries, TopN: topN}

		cat, version, err := loadSelectionCatalog()
		if err != nil {
			return err
		}
		mreg := metrics.NewRegistry()

		var sc *cache.SelectionCache
		if selUseCache {
			sc = selectionCache(ctx, version)
			defer sc.Close()
			var cached selection.Result
			err := sc.Get(ctx, "gearbox", req, &cached)
			switch {
			case err == nil:
				mreg.CacheHits.Inc()
				log.Debug().Str("version", version).Msg("selection cache hit")
				return writeJSON(cmd.OutOrStdout(), "", cached)
			case errors.Is(err, cache.ErrCacheMiss):
				mreg.CacheMiss.Inc()
			default:
				log.Warn().Err(err).Msg("selection cache read")
			}
		}

		sel := selection.New(matching.Default(), scoring.NewScorer(scoring.DefaultWeights()), pricing.NewCalculator(cfg.Pricing),
			selection.WithTopN(topN), selection.WithLogger(log))
		var res selection.Result
		if selSeries == "" {
			res = sel.AutoSelect(cat, selReq)
		} else {
			res = sel.SelectGearbox(cat, selReq, selSeries)
		}
		mreg.ObserveSelection("gearbox", res.Success)

		if sc != nil && res.Success {
			if err := sc.Set(ctx, "gearbox", req, res); err != nil {
				log.Warn().Err(err).Msg("selection cache write")
			}
		}
		return writeJSON(cmd.OutOrStdout(), "", res)
	},
}

func init() {
	f := selectCmd.Flags()
	f.Float64VarP(&selReq.EnginePower, "power", "p", 0, "engine power, kW")
	f.Float64VarP(&selReq.EngineSpeed, "speed", "n", 0, "engine speed, rpm")
	f.Float64VarP(&selReq.TargetRatio, "ratio", "r", 0, "target reduction ratio")
	f.Float64Var(&selReq.Thrust, "thrust", 0, "required propeller thrust, kN")
	f.StringVar(&selReq.WorkCondition, "condition", "", "work condition class")
	f.Float64Var(&selReq.Temperature, "temperature", 0, "ambient temperature, °C")
	f.BoolVar(&selReq.HasCover, "cover", false, "coupling needs a cover")
	f.StringVar(&selSeries, "series", "", "gearbox series (empty searches every core series)")
	f.StringVar(&selCatalog, "catalog", "", "canonical catalog file (default: configured store)")
	f.BoolVar(&selUseCache, "cache", false, "consult the selection cache")
	f.IntVar(&selTopN, "top", 0, "number of alternatives to return")
	_ = selectCmd.MarkFlagRequired("power")
	_ = selectCmd.MarkFlagRequired("speed")
	_ = selectCmd.MarkFlagRequired("ratio")
	rootCmd.AddCommand(selectCmd)
}
