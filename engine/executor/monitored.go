package executor

import (
	"time"

	"github.com/tessera-db/tessera/engine/plan"
)

// gaugeInterval is how often (in emitted rows) the monitored wrapper pushes
// gauge updates.
const gaugeInterval = 1000

// MonitoredOperator passes rows through unchanged while reporting throughput
// and latency to the context's performance monitor: a gauge update every
// 1000 rows and a final update plus latency record at completion.
type MonitoredOperator struct {
	baseOperator
	inner Operator
}

// NewMonitored wraps inner with metrics reporting through ctx.Monitor.
func NewMonitored(node *plan.Node, ctx *Context, inner Operator) *MonitoredOperator {
	return &MonitoredOperator{
		baseOperator: newBaseOperator(node, ctx, inner),
		inner:        inner,
	}
}

func (o *MonitoredOperator) Open() (RowIterator, error) {
	it, err := o.inner.Open()
	if err != nil {
		return nil, err
	}

	mon := o.ctx.Monitor
	gauge := string(o.node.Op) + "_rows"
	start := time.Now()
	var emitted int64
	finished := false

	finish := func() {
		if finished {
			return
		}
		finished = true
		elapsed := time.Since(start)
		mon.RecordRows(emitted)
		mon.UpdateGauge(gauge, float64(emitted))
		if secs := elapsed.Seconds(); secs > 0 {
			mon.UpdateGauge(gauge+"_per_sec", float64(emitted)/secs)
		}
		mon.RecordQuery(elapsed)
	}

	return &funcIterator{
		fn: func() (Row, error) {
			if !it.Next() {
				finish()
				return nil, it.Err()
			}
			emitted++
			if emitted%gaugeInterval == 0 {
				mon.UpdateGauge(gauge, float64(emitted))
			}
			return it.Row(), nil
		},
		close: func() error {
			finish()
			return it.Close()
		},
	}, nil
}
