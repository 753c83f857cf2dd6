package stratum

import (
	"context"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

// BatchOperator takes tree-wide operations: directory walks and recursive
// delete. Constructed by Operator.Batch.
type BatchOperator struct {
	op *Operator
}

// WalkTopDown walks the tree rooted at path, yielding each directory before
// anything beneath it. Ordering across sibling directories is
// backend-defined.
func (b *BatchOperator) WalkTopDown(path string) (raw.Pager, error) {
	if !b.op.Metadata().CanList() {
		return nil, raw.ErrUnsupported(b.op.Metadata().Scheme(), raw.OpList)
	}
	return raw.NewTopDownWalker(b.op.accessor, path), nil
}

// WalkBottomUp walks the tree rooted at path, yielding a directory's
// descendants before the directory itself.
func (b *BatchOperator) WalkBottomUp(path string) (raw.Pager, error) {
	if !b.op.Metadata().CanList() {
		return nil, raw.ErrUnsupported(b.op.Metadata().Scheme(), raw.OpList)
	}
	return raw.NewBottomUpWalker(b.op.accessor, path), nil
}

// RemoveAll deletes path and everything beneath it. A leaf is deleted
// directly with no listing. Deletion stops at the first failure; work done
// up to that point is not rolled back.
func (b *BatchOperator) RemoveAll(ctx context.Context, path string) error {
	obj := b.op.Object(path)

	meta, err := obj.Stat(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	if !meta.Mode().IsDir() {
		return obj.Delete(ctx)
	}

	walker, err := b.WalkBottomUp(path)
	if err != nil {
		return err
	}
	for {
		page, err := walker.NextPage(ctx)
		if err != nil {
			return err
		}
		if page == nil {
			return nil
		}
		for _, entry := range page {
			if err := b.op.Object(entry.Path).Delete(ctx); err != nil {
				return err
			}
		}
	}
}

func isNotFound(err error) bool {
	return errs.IsObjectNotFound(err)
}
