// Package stratum is a unified storage-access layer: one Operator interface
// for create/read/write/stat/delete/list/presign/multipart operations against
// heterogeneous backends, with cross-cutting behavior (metrics, logging,
// retries, error enrichment) composed as layers around a minimal accessor
// contract.
//
// A backend is built by its service package, wrapped through any number of
// layers, and handed to an Operator:
//
//	acc, err := memory.New().Build()
//	if err != nil {
//		return err
//	}
//	op := stratum.NewOperator(acc).
//		Layer(layers.NewLoggingLayer(nil)).
//		Finish()
//
//	err = op.Object("hello.txt").WriteBytes(ctx, []byte("hi"))
package stratum
