package task

import (
	"context"
	"errors"

	"github.com/sells-group/competitor-research/internal/model"
)

// MultiWriter fans a status snapshot out to several writers. Every writer is
// attempted; their errors are joined.
type MultiWriter []StatusWriter

// UpsertTaskStatus implements StatusWriter.
func (m MultiWriter) UpsertTaskStatus(ctx context.Context, t model.Task) error {
	var errs []error
	for _, w := range m {
		if w == nil {
			continue
		}
		if err := w.UpsertTaskStatus(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
