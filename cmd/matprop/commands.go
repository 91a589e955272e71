package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/matprop/candidate"
	"github.com/YuminosukeSato/matprop/chem"
)

func (a *app) predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "predict <formula>",
		Short:   "Estimate every target property of a formula with the production models",
		Example: `  matprop predict "0.96(K0.5Na0.5)NbO3-0.04LiSbO3"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.svc.Predict(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.writeJSON(p)
		},
	}
}

func (a *app) trainCmd() *cobra.Command {
	var (
		dataPath string
		hp       = candidate.DefaultHyperparameters()
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train candidate models for every target",
		Long: `Train uploads the CSV given with --data as the current dataset and trains a
candidate model for every configured target. Without --data the previously
uploaded dataset is used again. Production models are not changed; run
"matprop promote" to serve the new candidates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataPath == "" {
				rep, err := a.svc.Retrain(cmd.Context(), &hp)
				if err != nil {
					return err
				}
				return a.writeJSON(rep)
			}
			f, err := os.Open(dataPath)
			if err != nil {
				return err
			}
			defer f.Close()
			rep, err := a.svc.Train(cmd.Context(), f, &hp)
			if err != nil {
				return err
			}
			return a.writeJSON(rep)
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "CSV file with a formula column and target columns")
	cmd.Flags().IntVar(&hp.NEstimators, "n-estimators", hp.NEstimators, "number of boosting rounds of the XGBoost candidate")
	cmd.Flags().IntVar(&hp.MaxDepth, "max-depth", hp.MaxDepth, "maximum tree depth of the XGBoost candidate")
	cmd.Flags().Float64Var(&hp.LearningRate, "learning-rate", hp.LearningRate, "shrinkage of the XGBoost candidate")
	return cmd
}

func (a *app) promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Replace production models with the current candidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.svc.PromoteAll(cmd.Context())
			if err != nil {
				return err
			}
			return a.writeJSON(rep)
		},
	}
}

func (a *app) elementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "elements",
		Short: "List the supported elements in feature order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeJSON(map[string][]string{"elements": chem.Elements()})
		},
	}
}

func (a *app) datasetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dataset",
		Short: "Show the first rows of the current dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.svc.DatasetPreview(cmd.Context())
			if err != nil {
				return err
			}
			return a.writeJSON(rows)
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which candidate and production models exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.svc.ModelStatus(cmd.Context())
			if err != nil {
				return err
			}
			return a.writeJSON(st)
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeJSON(map[string]string{
				"version": version,
				"go":      runtime.Version(),
			})
		},
	}
}
