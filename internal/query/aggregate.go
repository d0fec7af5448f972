package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/vusplatform/varspace/internal/domain/table"
)

// Action names a column aggregation.
type Action string

const (
	ActionSum   Action = "sum"
	ActionAvg   Action = "avg"
	ActionMin   Action = "min"
	ActionMax   Action = "max"
	ActionCount Action = "count"
	ActionNone  Action = "none"
)

// AggregationSpec maps column → requested action.
type AggregationSpec map[string]Action

// AggregateResult is one computed column statistic. Skipped counts the
// matching rows whose cell was not numeric (always 0 for count and none).
type AggregateResult struct {
	Column  string `json:"column"`
	Action  Action `json:"action"`
	Value   string `json:"value"`
	Skipped int    `json:"skipped"`
}

type accumulator struct {
	column string
	action Action
	idx    int

	sum     float64
	min     float64
	max     float64
	numeric int
	skipped int
	count   int
}

func (a *accumulator) add(row table.Row) {
	a.count++
	if a.action == ActionCount || a.action == ActionNone {
		return
	}
	v, ok := table.ParseNumber(row[a.idx])
	if !ok {
		a.skipped++
		return
	}
	if a.numeric == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.sum += v
	a.numeric++
}

func (a *accumulator) result() AggregateResult {
	res := AggregateResult{Column: a.column, Action: a.action, Skipped: a.skipped}
	switch a.action {
	case ActionCount:
		// count covers every matching row, valid cell or not
		res.Value = strconv.Itoa(a.count)
	case ActionNone:
		res.Value = ""
	case ActionSum:
		res.Value = formatNumber(a.sum)
	case ActionAvg:
		if a.numeric == 0 {
			res.Value = "NA"
		} else {
			res.Value = formatNumber(a.sum / float64(a.numeric))
		}
	case ActionMin:
		if a.numeric == 0 {
			res.Value = "NA"
		} else {
			res.Value = formatNumber(a.min)
		}
	case ActionMax:
		if a.numeric == 0 {
			res.Value = "NA"
		} else {
			res.Value = formatNumber(a.max)
		}
	}
	return res
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Aggregate evaluates every active spec entry in a single pass over the rows
// matching filter. The whole filtered set is scanned, never just a page.
func Aggregate(t *table.Table, specs AggregationSpec, filter FilterSpec) ([]AggregateResult, error) {
	accs := make([]*accumulator, 0, len(specs))
	for column, action := range specs {
		idx := t.ColumnIndex(column)
		if idx < 0 {
			return nil, fmt.Errorf("aggregation column '%s' not in table", column)
		}
		switch action {
		case ActionSum, ActionAvg, ActionMin, ActionMax, ActionCount, ActionNone:
		default:
			return nil, fmt.Errorf("unknown aggregation action '%s'", action)
		}
		accs = append(accs, &accumulator{column: column, action: action, idx: idx})
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].column < accs[j].column })

	for _, row := range FilterRows(t, filter) {
		for _, acc := range accs {
			acc.add(t.Rows[row])
		}
	}

	results := make([]AggregateResult, len(accs))
	for i, acc := range accs {
		results[i] = acc.result()
	}
	return results, nil
}
