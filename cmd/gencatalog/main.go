// Command gencatalog writes a deliberately messy raw catalog for exercising
// normalization, repair and the build pipeline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"

	"gearsel/internal/catalog"
	"gearsel/internal/observability"
)

func main() {
	var (
		count      int
		seed       int64
		outputFile string
		envelope   bool
	)
	flag.IntVar(&count, "count", 20, "gearboxes per core series")
	flag.Int64Var(&seed, "seed", 1, "random seed")
	flag.StringVar(&outputFile, "output", "catalog.raw.json", "output file")
	flag.BoolVar(&envelope, "envelope", false, "wrap the document in an importer message")
	flag.Parse()

	log := observability.NewLogger(observability.LogConfig{Format: "console", ServiceName: "gencatalog"})
	if err := generate(count, seed, outputFile, envelope, log); err != nil {
		log.Fatal().Err(err).Msg("generation failed")
	}
}

func generate(count int, seed int64, outputFile string, envelope bool, log zerolog.Logger) error {
	rng := rand.New(rand.NewSource(seed))
	doc := Document(rng, count)
	var v any = doc
	if envelope {
		v = map[string]any{"source": "gencatalog", "catalog": doc}
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	n := 0
	for _, recs := range doc {
		n += len(recs)
	}
	log.Info().Int("records", n).Str("output", outputFile).Msg("generated raw catalog")
	return nil
}

// Document builds a raw catalog document with the defects normalization is
// expected to absorb.
func Document(rng *rand.Rand, count int) map[string][]map[string]any {
	doc := map[string][]map[string]any{}
	for _, series := range catalog.CoreSeries {
		coll := catalog.CollectionForSeries(series)
		for i := 0; i < count; i++ {
			doc[coll] = append(doc[coll], gearbox(rng, series, i))
		}
		// record without model and a duplicate of the first entry
		doc[coll] = append(doc[coll], map[string]any{"ratios": []float64{2}})
		doc[coll] = append(doc[coll], gearbox(rng, series, 0))
	}
	for _, size := range []float64{2.5, 3.15, 4, 4.5, 5, 6.3, 8, 10} {
		doc[catalog.FlexibleCouplings] = append(doc[catalog.FlexibleCouplings], coupling(rng, size))
	}
	doc[catalog.StandbyPumps] = []map[string]any{
		{"model": "2CY7.5/2.5D", "flow": 7.5, "pressure": "2.5", "price": 4200},
		{"model": "2CY14.2/2.5D"},
		{"model": "SPF10-40", "motorPower": "n/a"},
	}
	doc["propellers"] = []map[string]any{{"model": "P1"}}
	return doc
}

func gearbox(rng *rand.Rand, series string, i int) map[string]any {
	size := 100 * (i + 1)
	nRatios := 2 + rng.Intn(4)
	ratios := make([]float64, nRatios)
	caps := make([]float64, nRatios)
	base := 0.05 + float64(size)/2000
	for j := range ratios {
		ratios[j] = float64(150+50*j+rng.Intn(30)) / 100
		caps[j] = float64(int((base-0.01*float64(j))*1000)) / 1000
	}
	g := map[string]any{
		"model":  fmt.Sprintf("%s%d", series, size),
		"ratios": ratios,
		"thrust": float64(20 + size/10),
		"weight": fmt.Sprintf("%dkg", 200+size),
	}
	switch rng.Intn(4) {
	case 0:
		g["transferCapacity"] = caps[:1]
	case 1:
		g["transferCapacity"] = caps[0]
	default:
		g["transferCapacity"] = caps
	}
	switch rng.Intn(3) {
	case 0:
		g["inputSpeedRange"] = "1000-2100"
	case 1:
		g["inputSpeedRange"] = []float64{2500}
	default:
		g["inputSpeedRange"] = []float64{600, 2300}
	}
	price := 8000 + size*40
	switch rng.Intn(3) {
	case 0:
		g["price"] = price
	case 1:
		g["basePrice"] = fmt.Sprint(price)
	default:
		g["basePrice"] = price
		g["discountRate"] = 10 + rng.Intn(10)
	}
	return g
}

func coupling(rng *rand.Rand, size float64) map[string]any {
	c := map[string]any{
		"model":    fmt.Sprintf("HGTHT%g", size),
		"maxSpeed": 2000 + 100*rng.Intn(10),
		"price":    int(2000 + size*900),
	}
	if rng.Intn(2) == 0 {
		c["torque"] = size * 1000 // N·m
	} else {
		c["torque"] = size
		c["maxTorque"] = size * 2.5
	}
	return c
}
