package pipeline

import (
	"context"
	"time"

	"github.com/trueinf/geosight-new-sub000/internal/analyze"
	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// Search runs FetchAll and, when q names a target, the target analysis over
// the combined items. The returned snapshot has no ID; the store assigns one.
func (f *Fetcher) Search(ctx context.Context, q Query) (*model.Snapshot, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	res, err := f.FetchAll(ctx, q)
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		Query:     q.Text,
		Target:    q.Target,
		Mode:      q.Mode,
		Location:  q.Location,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	if q.Target != "" {
		a := analyze.Analyze(res.ProviderItems, q.Target, q.Text)
		snap.Analysis = &a
	}
	return snap, nil
}
