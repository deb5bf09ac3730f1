// Package publish turns text into signed text notes and broadcasts them to
// every relay in a pool. A Publisher is also the stream's record handler.
package publish

import (
	"nostrbird.lol/context"
	"nostrbird.lol/envelopes/eventenvelope"
	"nostrbird.lol/errorf"
	"nostrbird.lol/event"
	"nostrbird.lol/log"
	"nostrbird.lol/metrics"
	"nostrbird.lol/stream"
	"nostrbird.lol/ws"
)

type Publisher struct {
	Builder *event.Builder
	Pool    *ws.Pool
}

func New(b *event.Builder, pool *ws.Pool) *Publisher {
	return &Publisher{Builder: b, Pool: pool}
}

// Publish signs text as a text note and sends it to every relay. Relay
// failures are in the results and the log; only a signing failure is an
// error.
func (p *Publisher) Publish(c context.T, text string) (ev *event.T,
	results []ws.Result, err error) {
	if ev, err = p.Builder.TextNote(text); err != nil {
		metrics.Published.WithLabelValues("signing_failed").Inc()
		return nil, nil, errorf.E("not publishing: %w", err)
	}
	msg := eventenvelope.NewSubmissionWith(ev).Marshal(nil)
	results = p.Pool.Broadcast(c, msg)
	var sent int
	for _, r := range results {
		if r.Err != nil {
			log.E.F("{%s} event %s: %v", r.URL, ev.IDString(), r.Err)
			continue
		}
		sent++
		log.I.F("{%s} sent event %s", r.URL, ev.IDString())
	}
	if sent == 0 && len(results) > 0 {
		metrics.Published.WithLabelValues("undelivered").Inc()
	} else {
		metrics.Published.WithLabelValues("ok").Inc()
	}
	log.D.F("event %s reached %d of %d relays", ev.IDString(), sent, len(results))
	return
}

// Handle publishes the text of one stream record.
func (p *Publisher) Handle(c context.T, rec *stream.Record) (err error) {
	log.D.F("record %s: %q", rec.ID, rec.Text)
	_, _, err = p.Publish(c, rec.Text)
	return
}

var _ stream.Handler = (&Publisher{}).Handle
