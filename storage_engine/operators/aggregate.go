package operators

import (
	"github.com/vvksh/SimpleDB/dberrors"
	"github.com/vvksh/SimpleDB/types"
)

// AggOp is an aggregation function.
type AggOp int

const (
	Min AggOp = iota
	Max
	Sum
	Avg
	Count
)

// NoGrouping marks an Aggregate with no group-by field.
const NoGrouping = -1

// Aggregate fully materializes its child on Open, grouping rows by the
// value of groupField (or ungrouped if groupField == NoGrouping) and
// folding aggField through op per group. MIN/MAX/SUM/AVG require an
// integer aggField; a string aggField accepts only COUNT. Output schema
// is (aggregate) or (group-key, aggregate); COUNT and AVG always output
// an integer. Grounded on original_source's operators/aggregators/
// {IntegerAggregator,StringAggregator}.java, collapsed into one type
// with a closed switch over AggOp rather than two implementations of a
// Java interface.
type Aggregate struct {
	child      Operator
	aggField   int
	groupField int
	op         AggOp

	hasGrouping bool
	schema      *types.Schema

	results []*types.Tuple
	pos     int
}

// NewAggregate builds an Aggregate over child. Fails immediately if
// aggField is string-typed and op is not Count.
func NewAggregate(child Operator, aggField, groupField int, op AggOp) (*Aggregate, error) {
	aggType, err := child.Schema().FieldType(aggField)
	if err != nil {
		return nil, err
	}
	if aggType == types.StringType && op != Count {
		return nil, dberrors.NewIllegalArgument("aggregate: string aggregate field only supports COUNT")
	}
	return &Aggregate{
		child:       child,
		aggField:    aggField,
		groupField:  groupField,
		op:          op,
		hasGrouping: groupField != NoGrouping,
	}, nil
}

func (a *Aggregate) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}

	if a.hasGrouping {
		groupType, err := a.child.Schema().FieldType(a.groupField)
		if err != nil {
			return err
		}
		schema, err := types.NewSchema([]types.Type{groupType, types.IntType}, []string{"groupval", "aggval"})
		if err != nil {
			return err
		}
		a.schema = schema
	} else {
		schema, err := types.NewSchema([]types.Type{types.IntType}, []string{"aggval"})
		if err != nil {
			return err
		}
		a.schema = schema
	}

	sums := make(map[types.Field]int32)
	counts := make(map[types.Field]int32)
	mins := make(map[types.Field]int32)
	maxs := make(map[types.Field]int32)
	var order []types.Field
	seen := make(map[types.Field]bool)

	var noGroupKey types.Field = types.IntField(0)

	for {
		ok, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}

		key := noGroupKey
		if a.hasGrouping {
			key, err = t.Field(a.groupField)
			if err != nil {
				return err
			}
		}
		if !seen[key] {
			seen[key] = true
			order = append(order, key)
		}

		af, err := t.Field(a.aggField)
		if err != nil {
			return err
		}
		counts[key]++

		if af.Type() == types.IntType {
			v := int32(af.(types.IntField))
			switch a.op {
			case Sum, Avg:
				sums[key] += v
			case Min:
				if cur, ok := mins[key]; !ok || v < cur {
					mins[key] = v
				}
			case Max:
				if cur, ok := maxs[key]; !ok || v > cur {
					maxs[key] = v
				}
			}
		}
	}

	a.results = make([]*types.Tuple, 0, len(order))
	for _, key := range order {
		var value int32
		switch a.op {
		case Count:
			value = counts[key]
		case Sum:
			value = sums[key]
		case Avg:
			value = sums[key] / counts[key]
		case Min:
			value = mins[key]
		case Max:
			value = maxs[key]
		}

		var fields []types.Field
		if a.hasGrouping {
			fields = []types.Field{key, types.IntField(value)}
		} else {
			fields = []types.Field{types.IntField(value)}
		}
		tup, err := types.NewTuple(a.schema, fields)
		if err != nil {
			return err
		}
		a.results = append(a.results, tup)
	}

	a.pos = 0
	return nil
}

func (a *Aggregate) HasNext() (bool, error) { return a.pos < len(a.results), nil }

func (a *Aggregate) Next() (*types.Tuple, error) {
	if a.pos >= len(a.results) {
		return nil, errExhausted
	}
	t := a.results[a.pos]
	a.pos++
	return t, nil
}

func (a *Aggregate) Rewind() error {
	a.pos = 0
	return nil
}

func (a *Aggregate) Close() { a.child.Close() }

func (a *Aggregate) Schema() *types.Schema { return a.schema }
