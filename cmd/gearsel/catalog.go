package main

import (
	"github.com/spf13/cobra"

	"gearsel/internal/adapter"
	"gearsel/internal/catalog"
	"gearsel/internal/pricing"
	"gearsel/internal/repair"
)

var (
	catalogIn  string
	catalogOut string

	priceModel    string
	priceBase     float64
	priceDiscount float64
	priceMarket   float64
	priceFactors  pricing.Factors
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a raw catalog import into canonical records",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(catalogIn)
		if err != nil {
			return err
		}
		calc := pricing.NewCalculator(cfg.Pricing)
		cat, st := adapter.New(calc, cfg.Defaults, adapter.WithLogger(log)).NormalizeJSON(data)
		fixed := calc.ApplyFixedPrice(&cat)
		log.Info().
			Int("records", st.Total()).
			Int("dropped", st.Dropped).
			Int("duplicates", st.Duplicates).
			Int("torque_converted", st.TorqueConverted).
			Int("fixed_priced", fixed).
			Msg("normalized")
		return writeJSON(cmd.OutOrStdout(), catalogOut, cat)
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Patch data defects in a canonical catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := readCatalog(catalogIn)
		if err != nil {
			return err
		}
		out, sum := repair.New(cfg.Defaults, log).Repair(cat)
		for _, w := range sum.Warnings {
			log.Warn().Msg(w)
		}
		log.Info().Int("patched", sum.Total()).Msg("repaired")
		return writeJSON(cmd.OutOrStdout(), catalogOut, out)
	},
}

type priceOutput struct {
	Model      string        `json:"model"`
	FixedPrice bool          `json:"fixedPrice"`
	Price      catalog.Price `json:"price"`
	Quote      float64       `json:"quote,omitempty"`
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Run the price cascade for one model",
	RunE: func(cmd *cobra.Command, args []string) error {
		calc := pricing.NewCalculator(cfg.Pricing)
		in := pricing.Input{BasePrice: priceBase, MarketPrice: priceMarket}
		if cmd.Flags().Changed("discount") {
			in.DiscountRate = &priceDiscount
		}
		out := priceOutput{Model: priceModel, FixedPrice: calc.IsFixedPrice(priceModel), Price: calc.FinalPrice(priceModel, in)}
		out.Quote = calc.QuoteMarketPrice(out.Price.FactoryPrice, priceFactors)
		return writeJSON(cmd.OutOrStdout(), "", out)
	},
}

func init() {
	for _, c := range []*cobra.Command{normalizeCmd, repairCmd} {
		c.Flags().StringVarP(&catalogIn, "input", "i", "-", "input file (- for stdin)")
		c.Flags().StringVarP(&catalogOut, "output", "o", "-", "output file (- for stdout)")
		rootCmd.AddCommand(c)
	}

	priceCmd.Flags().StringVarP(&priceModel, "model", "m", "", "model name")
	priceCmd.Flags().Float64Var(&priceBase, "base-price", 0, "base price")
	priceCmd.Flags().Float64Var(&priceDiscount, "discount", 0, "explicit discount rate")
	priceCmd.Flags().Float64Var(&priceMarket, "market-price", 0, "explicit market price")
	priceCmd.Flags().Float64Var(&priceFactors.Competition, "competition", 0, "quote competition factor")
	priceCmd.Flags().Float64Var(&priceFactors.Urgency, "urgency", 0, "quote urgency factor")
	priceCmd.Flags().Float64Var(&priceFactors.Relationship, "relationship", 0, "quote relationship factor")
	priceCmd.Flags().Float64Var(&priceFactors.Seasonal, "seasonal", 0, "quote seasonal factor")
	_ = priceCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(priceCmd)
}
