package main

import (
	"fmt"
	"os"
	"sync"
	"text/tabwriter"

	"nostrbird.lol/config"
	"nostrbird.lol/context"
	"nostrbird.lol/errorf"
	"nostrbird.lol/event"
	"nostrbird.lol/interrupt"
	"nostrbird.lol/keys"
	"nostrbird.lol/log"
	"nostrbird.lol/metrics"
	"nostrbird.lol/publish"
	"nostrbird.lol/rules"
	"nostrbird.lol/signer"
	"nostrbird.lol/stream"
	"nostrbird.lol/ws"
)

func loadSigner(cfg *config.C) (sign signer.I, err error) {
	if err = cfg.Require("PRIVATE_KEY"); err != nil {
		return
	}
	if sign, err = keys.Load(cfg.PrivateKey); err != nil {
		return nil, fmt.Errorf("%w: PRIVATE_KEY: %w", config.ErrConfig, err)
	}
	log.I.F("publishing as %s", keys.Npub(sign))
	return
}

// serveMetrics starts the metrics listener.
var serveMetrics = metrics.Serve

// connectRelays dials every relay concurrently. Relays that fail are logged
// and left out; no relay at all is an error.
func connectRelays(c context.T, cfg *config.C, relays []string) (pool *ws.Pool, err error) {
	pool = ws.NewPool(c,
		ws.WithConnectTimeout(cfg.ConnectTimeout),
		ws.WithRelayOptions{ws.WithSendTimeout(cfg.SendTimeout)})
	var wg sync.WaitGroup
	for _, u := range relays {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			// failures are logged by the pool
			_, _ = pool.EnsureRelay(u)
		}(u)
	}
	wg.Wait()
	n := pool.Connected()
	log.I.F("connected to %d of %d relays", n, len(relays))
	if n == 0 {
		pool.Close()
		return nil, errorf.E("%w: none of the %d relays could be reached",
			ws.ErrConnect, len(relays))
	}
	return
}

func runStream(cfg *config.C) (err error) {
	if err = cfg.Require("BEARER_TOKEN", "PRIVATE_KEY"); err != nil {
		return
	}
	// every configuration error surfaces before anything touches the network
	var relays []string
	if relays, err = cfg.Relays(); err != nil {
		return
	}
	var sign signer.I
	if sign, err = loadSigner(cfg); err != nil {
		return
	}
	defer sign.Zero()
	c, cancel := context.Cancel(context.Bg())
	defer cancel()
	interrupt.AddHandler(cancel)
	go func() {
		if err := serveMetrics(c, cfg.MetricsListen); err != nil {
			log.E.F("metrics listener: %v", err)
		}
	}()
	var pool *ws.Pool
	if pool, err = connectRelays(c, cfg, relays); err != nil {
		return
	}
	defer pool.Close()
	pub := publish.New(event.NewBuilder(sign), pool)
	in := stream.New(cfg.StreamURL, cfg.BearerToken, pub.Handle)
	err = in.Run(c)
	if werr := in.Wait(cfg.ShutdownTimeout); werr != nil {
		log.W.F("%v", werr)
	}
	st := in.Stats()
	log.I.F("stream %s: %d records, %d heartbeats, %d unparseable, %d dispatched, %d failed",
		in.State(), st.Received, st.Heartbeats, st.ParseFailures, st.Dispatched, st.Failed)
	return
}

func rulesClient(cfg *config.C) (cl *rules.Client, err error) {
	if err = cfg.Require("BEARER_TOKEN"); err != nil {
		return
	}
	return rules.New(cfg.RulesURL, cfg.BearerToken), nil
}

func listRules(cfg *config.C) (err error) {
	var cl *rules.Client
	if cl, err = rulesClient(cfg); err != nil {
		return
	}
	var rs []rules.Rule
	if rs, err = cl.List(context.Bg()); err != nil {
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVALUE\tTAG")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Value, r.Tag)
	}
	return tw.Flush()
}

func createRule(cfg *config.C, account string) (err error) {
	var cl *rules.Client
	if cl, err = rulesClient(cfg); err != nil {
		return
	}
	return cl.Create(context.Bg(), account)
}

func deleteRule(cfg *config.C, account string) (err error) {
	var cl *rules.Client
	if cl, err = rulesClient(cfg); err != nil {
		return
	}
	return cl.Delete(context.Bg(), account)
}

func publishNote(cfg *config.C, text string) (err error) {
	var relays []string
	if relays, err = cfg.Relays(); err != nil {
		return
	}
	var sign signer.I
	if sign, err = loadSigner(cfg); err != nil {
		return
	}
	defer sign.Zero()
	c, cancel := context.Cancel(context.Bg())
	defer cancel()
	interrupt.AddHandler(cancel)
	var pool *ws.Pool
	if pool, err = connectRelays(c, cfg, relays); err != nil {
		return
	}
	defer pool.Close()
	var ev *event.T
	var results []ws.Result
	if ev, results, err = publish.New(event.NewBuilder(sign), pool).Publish(c, text); err != nil {
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "event %s\n", ev.IDString())
	var failed int
	for _, r := range results {
		outcome := "ok"
		if r.Err != nil {
			outcome = r.Err.Error()
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.URL, outcome)
	}
	if err = tw.Flush(); err != nil {
		return
	}
	if failed == len(results) {
		return errorf.E("event %s reached no relay", ev.IDString())
	}
	return
}
