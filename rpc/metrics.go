package rpc

import (
	"time"

	"github.com/uber-go/tally"
)

type observer struct {
	callsSent            tally.Counter
	callsFired           tally.Counter
	callTimeouts         tally.Counter
	callLatency          tally.Timer
	repliesSent          tally.Counter
	decodeFailures       tally.Counter
	workerFailures       tally.Counter
	transportFailures    tally.Counter
	missingResponseQueue tally.Counter
}

func newObserver(scope tally.Scope) *observer {
	return &observer{
		callsSent:            scope.Counter("calls_sent"),
		callsFired:           scope.Counter("calls_fired"),
		callTimeouts:         scope.Counter("call_timeouts"),
		callLatency:          scope.Timer("call_latency"),
		repliesSent:          scope.Counter("replies_sent"),
		decodeFailures:       scope.Counter("decode_failures"),
		workerFailures:       scope.Counter("worker_failures"),
		transportFailures:    scope.Counter("transport_failures"),
		missingResponseQueue: scope.Counter("missing_response_queue"),
	}
}

func (o *observer) sent(start time.Time, err error) {
	o.callsSent.Inc(1)
	if IsTimeout(err) {
		o.callTimeouts.Inc(1)
		return
	}
	if err == nil {
		o.callLatency.Record(time.Since(start))
	}
}

// failure counts an error handed to the error hook.
func (o *observer) failure(err error) {
	switch err.(type) {
	case *DecodeError:
		o.decodeFailures.Inc(1)
	case *WorkerError:
		o.workerFailures.Inc(1)
	case *TransportError:
		o.transportFailures.Inc(1)
	}
}
