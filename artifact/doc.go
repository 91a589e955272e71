// Package artifact stores trained models and uploaded datasets.
//
// A Store is a flat key/value blob namespace with whole-object writes, so a
// reader never observes a partially written blob. Three backends exist:
// MemoryStore for tests, LocalStore on a directory, and the S3-compatible
// store in the minio subpackage.
//
// Trained models travel as an Artifact envelope: metadata plus the encoded
// regressor payload, gob-encoded and compressed with zstd.
//
//	a := &artifact.Artifact{Family: "XGBoost", Target: "d33 (pC/N)", Payload: payload}
//	data, err := artifact.Marshal(a)
//	err = store.Put(ctx, artifact.Name("d33 (pC/N)", artifact.Candidate), data)
package artifact
