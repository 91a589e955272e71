// Package matprop estimates material properties of ceramic compositions
// from their chemical formula.
//
// A formula such as "0.96(K0.5Na0.5)NbO3-0.04LiSbO3" is parsed into a
// fixed-length composition vector over 24 elements (package chem). Training
// turns a labeled CSV into candidate models by fitting three regressor
// families, scoring them on a held-out split and keeping the best one
// (package pipeline). An operator then promotes candidates to production
// (package lifecycle), and inference reads only production models
// (package service).
//
// # Packages
//
//   - chem: element vocabulary and the formula parser
//   - preprocessing: composition feature matrices
//   - sklearn/xgboost, sklearn/lightgbm, sklearn/ensemble, sklearn/tree: regressor families
//   - candidate: the closed set of families and their hyperparameters
//   - metrics: R², RMSE, MAE
//   - report: comparison and scatter charts as base64 PNG
//   - dataset: CSV loading, column resolution, train/test split
//   - artifact: model envelopes and blob stores (memory, local, MinIO)
//   - pipeline, lifecycle, service: training, promotion and inference
//   - config, cmd/matprop: YAML configuration and the command-line tool
//
// # Quick Start
//
//	svc := service.New(config.Default(), artifact.NewMemoryStore())
//	hp := candidate.DefaultHyperparameters()
//	if _, err := svc.Train(ctx, csvFile, &hp); err != nil {
//	    log.Fatal(err)
//	}
//	svc.PromoteAll(ctx)
//	pred, err := svc.Predict(ctx, "BaTiO3")
//
// See examples/quickstart for a runnable program.
package matprop
