// Package omikuji provides extreme multi-label classification with
// partitioned label trees.
//
// An ensemble of balanced binary label trees is trained over sparse
// bag-of-features data; prediction walks each tree with a beam search
// and merges the ensemble's scores. The approach handles label spaces
// far too large for flat one-vs-rest classifiers while keeping
// prediction cost logarithmic in the number of labels.
//
// # Quick Start
//
// Training:
//
//	ctx := context.Background()
//	ds, _ := dataset.LoadFile("train.txt")
//	model, _ := omikuji.Train(ctx, ds,
//	    omikuji.WithNumTrees(3),
//	    omikuji.WithMaxLeafSize(100),
//	)
//
// Prediction:
//
//	results, _ := model.Predict(ctx, query, 5, omikuji.WithBeamSize(10))
//	for _, r := range results {
//	    fmt.Println(r.Label, r.Score)
//	}
//
// Persistence:
//
//	model.SaveToFile(ctx, "model.bin", omikuji.WithCodec(persist.CodecZstd))
//	model, _ = omikuji.LoadFromFile(ctx, "model.bin")
//
// # Determinism
//
// Training is deterministic: the same dataset, hyperparameters and
// seed produce the same model for every thread count. A saved and
// reloaded model scores bit-identically to the original.
//
// # Key Features
//
//   - Balanced 2-means label partitioning
//   - Hinge or logistic loss classifiers (dual coordinate descent)
//   - Sparse or dense weight storage with magnitude pruning
//   - Deterministic parallel training on a bounded worker pool
//   - Compressed, checksummed model files (LZ4/Zstd)
package omikuji
