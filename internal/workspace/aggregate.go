package workspace

import (
	"github.com/vusplatform/varspace/internal/query"
)

// ComputeAggregation evaluates one column statistic over every row matching
// the filter, the whole filtered set rather than the current page.
func (e *Engine) ComputeAggregation(fileID, column string, action query.Action, filter query.FilterSpec) (query.AggregateResult, error) {
	results, err := e.ComputeAll(fileID, query.AggregationSpec{column: action}, filter)
	if err != nil {
		return query.AggregateResult{}, err
	}
	return results[0], nil
}

// ComputeAll evaluates every active aggregation in a single scan of the file,
// so refreshing a row of column footers costs one read instead of one per
// column.
func (e *Engine) ComputeAll(fileID string, specs query.AggregationSpec, filter query.FilterSpec) ([]query.AggregateResult, error) {
	release := e.locks.AcquireRead(fileID)
	defer release()

	t, err := e.store.Load(fileID)
	if err != nil {
		return nil, err
	}
	return query.Aggregate(t, specs, filter)
}
