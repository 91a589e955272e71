// Package xgboost implements XGBoost-style gradient boosted trees for
// regression with the squared-error objective.
//
// Trees are grown depth-wise with the exact greedy split finder: every
// distinct feature value is a split candidate, split gain is
//
//	0.5 * (GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)) - γ
//
// and leaf weights are -G/(H+λ) scaled by the learning rate. The base score
// is the training mean, as in XGBoost 2.x.
package xgboost
