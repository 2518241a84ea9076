package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"telcochurn/pkg/artifact"
	"telcochurn/pkg/config"
	"telcochurn/pkg/data"
	"telcochurn/pkg/logger"
	"telcochurn/pkg/model"
	"telcochurn/pkg/pipeline"
	"telcochurn/pkg/split"
)

//
// ---------------------- CLI FLAGS ----------------------
//
// --config   : Optional YAML config file. CHURN_* env vars override it.
// --input    : Cleaned telco CSV. Overrides data.path.
// --output   : Artifact name inside the configured store. Overrides model.name.
// --solver   : lbfgs or sgd
// --max-iter : Iteration budget of the solver
// --tol      : Convergence tolerance
// --c        : Inverse L2 regularization strength
// --holdout  : Fraction held out for evaluation before the final fit (0 = skip)
// --folds    : k for k-fold cross-validation before the final fit (0 = skip)
// --seed     : Shuffle seed for the holdout split and the folds
//
// Example:
//   go run ./cmd/train --input telco_churn_cleaned.csv --holdout 0.2
//
// -------------------------------------------------------
//

func main() {
	configPath := flag.String("config", "", "config file")
	input := flag.String("input", "", "dataset path")
	output := flag.String("output", "", "artifact name")
	solver := flag.String("solver", "", "lbfgs or sgd")
	maxIter := flag.Int("max-iter", 0, "max solver iterations")
	tol := flag.Float64("tol", 0, "convergence tolerance")
	c := flag.Float64("c", 0, "inverse regularization strength")
	holdout := flag.Float64("holdout", 0, "evaluation holdout ratio")
	folds := flag.Int("folds", 0, "cross-validation folds")
	seed := flag.Int64("seed", 42, "shuffle seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Data.Path = *input
	}
	if *output != "" {
		cfg.Model.Name = *output
	}
	if *solver != "" {
		cfg.Model.Solver = *solver
	}
	if *maxIter > 0 {
		cfg.Model.MaxIter = *maxIter
	}
	if *tol > 0 {
		cfg.Model.Tol = *tol
	}
	if *c > 0 {
		cfg.Model.C = *c
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	if err := run(context.Background(), cfg, evalPlan{holdout: *holdout, folds: *folds, seed: *seed}, log); err != nil {
		log.Fatal("training failed", zap.Error(err))
	}
}

type evalPlan struct {
	holdout float64
	folds   int
	seed    int64
}

func run(ctx context.Context, cfg *config.Config, plan evalPlan, log *zap.Logger) error {
	table, err := data.Load(cfg.Data.Path)
	if err != nil {
		return err
	}
	log.Info("dataset loaded",
		zap.String("path", cfg.Data.Path),
		zap.Int("rows", table.Len()),
		zap.Int("dropped", table.Dropped),
		zap.String("encoding", table.Encoding),
	)

	opts := []pipeline.Option{
		pipeline.WithModelOptions(cfg.Model.Options()...),
		pipeline.WithLogger(log),
	}

	if plan.holdout > 0 {
		eval, err := evaluate(table, plan.holdout, plan.seed, opts)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(eval, "", "  ")
		fmt.Printf("Holdout evaluation (%.0f%%):\n%s\n", plan.holdout*100, out)
	}
	if plan.folds > 1 {
		evals, err := crossValidate(table, plan.folds, plan.seed, opts)
		if err != nil {
			return err
		}
		fmt.Printf("%d-fold cross-validation:\n", plan.folds)
		var acc, f1 float64
		for i, e := range evals {
			fmt.Printf("  fold %d: rows=%d log_loss=%.4f accuracy=%.4f f1=%.4f\n", i+1, e.Rows, e.LogLoss, e.Accuracy, e.F1)
			acc += e.Accuracy
			f1 += e.F1
		}
		fmt.Printf("  mean: accuracy=%.4f f1=%.4f\n", acc/float64(len(evals)), f1/float64(len(evals)))
	}

	p, err := pipeline.Train(table, opts...)
	if err != nil {
		return err
	}

	store, err := cfg.Store.Open(ctx)
	if err != nil {
		return err
	}
	defer artifact.Close(store)
	if err := artifact.Save(ctx, store, cfg.Model.Name, p); err != nil {
		return err
	}
	log.Info("artifact saved",
		zap.String("location", store.Location(cfg.Model.Name)),
		zap.String("model_id", p.Meta.ID),
	)

	out, _ := json.MarshalIndent(p.Meta.Report, "", "  ")
	fmt.Printf("Training report:\n%s\n", out)
	return nil
}

// evaluate fits on the training share and scores the held-out rows.
func evaluate(table *data.Table, ratio float64, seed int64, opts []pipeline.Option) (model.Evaluation, error) {
	train, test, err := split.Holdout(table, ratio, seed)
	if err != nil {
		return model.Evaluation{}, err
	}
	return fitAndScore(train, test, opts)
}

// crossValidate runs one fit per fold, each scored on its held-out fold.
func crossValidate(table *data.Table, k int, seed int64, opts []pipeline.Option) ([]model.Evaluation, error) {
	folds, err := split.KFold(table.Len(), k, seed)
	if err != nil {
		return nil, err
	}
	evals := make([]model.Evaluation, 0, k)
	for i, test := range folds {
		var train []int
		for j, fold := range folds {
			if j != i {
				train = append(train, fold...)
			}
		}
		eval, err := fitAndScore(table.Subset(train), table.Subset(test), opts)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
		evals = append(evals, eval)
	}
	return evals, nil
}

func fitAndScore(train, test *data.Table, opts []pipeline.Option) (model.Evaluation, error) {
	p, err := pipeline.Train(train, opts...)
	if err != nil {
		return model.Evaluation{}, err
	}

	var X [][]float64
	var y []float64
	for i := range test.Records {
		row, ok := p.TransformCustomer(&test.Records[i])
		if !ok {
			continue
		}
		X = append(X, row)
		y = append(y, float64(test.Records[i].Churn))
	}
	if len(y) == 0 {
		return model.Evaluation{}, fmt.Errorf("evaluation split has no usable rows")
	}
	return model.Evaluate(y, p.Model.PredictProba(X)), nil
}
