// Package textlearn is an active-learning pipeline for binary text
// classification.
//
// Raw comments are tokenized and turned into sparse count features
// (package feature), an L1-regularized logistic-regression path is fitted
// with cross-validated penalty selection (package linear), evaluated
// (package metrics), and the classifier's uncertainty drives which unlabeled
// documents a human should label next (package active). Package pipeline
// wires the stages into repeatable rounds as labels accumulate.
//
// # Quick start
//
//	cfg := pipeline.DefaultConfig()
//	cfg.Folds = 5
//	cfg.BatchSize = 20
//
//	p, err := pipeline.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pool, err := pipeline.NewPool(labeled, unlabeled)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := p.Round(context.Background(), pool)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range result.Batch {
//	    fmt.Printf("label next: doc %d (p=%.2f)\n", c.ID, c.Probability)
//	}
//
// See examples/activelearn for a runnable end-to-end round.
package textlearn
