// Package tree implements a CART regression tree with a squared-error
// criterion. It is the base learner of the random forest in sklearn/ensemble
// and is gob-encodable so fitted trees can be persisted as artifacts.
package tree
