package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sergiocarp10/ggca/app"
	"github.com/sergiocarp10/ggca/domain/dataset"
	"github.com/sergiocarp10/ggca/internal/config"
	"github.com/sergiocarp10/ggca/internal/testkit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	genes, gems, err := testkit.SyntheticDatasets(cfg.Demo.Genes, cfg.Demo.Gems, cfg.Demo.Samples, cfg.Demo.Seed)
	if err != nil {
		log.Fatalf("synthetic datasets: %v", err)
	}
	if cfg.Analysis.GemContainsCpG {
		annotated := testkit.AnnotateCpG(gems.Vectors(), 2, cfg.Demo.Seed)
		gems, err = dataset.NewInMemory(annotated)
		if err != nil {
			log.Fatalf("cpg annotation: %v", err)
		}
	}

	service := app.NewAnalysisService(cfg.Analysis)

	start := time.Now()
	result, err := service.Run(context.Background(), genes, gems)
	if err != nil {
		log.Fatalf("analysis: %v", err)
	}

	if len(result.Results) < 4 {
		for _, r := range result.Results {
			fmt.Println(r)
		}
	}
	fmt.Printf("Finished in -> %d ms\n", time.Since(start).Milliseconds())
	fmt.Printf("Number of elements -> %d of %d combinations evaluated (%d total)\n",
		len(result.Results), result.EvaluatedCombinations, result.TotalCombinations)
}
