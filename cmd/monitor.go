package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

// monitor serves live chain progress over HTTP via the expvar package.
type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server
	start   time.Time

	TotalSamples *expvar.Int
	LastWalker   *expvar.Int
	LastStep     *expvar.Int
	LastLogProb  *expvar.Float
	RunTime      *expvar.Float
}

// Start begins the monitor on the given address.
func (m *monitor) Start(addr string) error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("cosmofit-progress")
	m.stopped = make(chan struct{})
	m.start = time.Now()
	m.server = &http.Server{
		Addr: addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.TotalSamples = expvar.NewInt("Total-Samples")
	m.LastWalker = expvar.NewInt("Last-Walker")
	m.LastStep = expvar.NewInt("Last-Step")
	m.LastLogProb = expvar.NewFloat("Last-Log-Prob")
	m.RunTime = expvar.NewFloat("Run-Time")

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		_ = m.server.ListenAndServe()
	}()

	<-started
	return nil
}

// Progress is the per-sample callback handed to the sampling ensemble.
func (m *monitor) Progress(walker, step int, lnprob float64) {
	if m.info == nil {
		return
	}

	m.TotalSamples.Add(1)
	m.LastWalker.Set(int64(walker))
	m.LastStep.Set(int64(step))
	m.LastLogProb.Set(lnprob)
	m.RunTime.Set(time.Since(m.start).Seconds())
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	_ = m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
