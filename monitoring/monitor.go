// Package monitoring serves the progress of running searches over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/meshplace/annealing"
	"github.com/sarchlab/meshplace/cost"
	"github.com/sarchlab/meshplace/hooking"
	"github.com/sarchlab/meshplace/monitoring/web"
	"github.com/sarchlab/meshplace/noc/linkload"
	"github.com/sarchlab/meshplace/noc/mesh"
)

// A Snapshot is a copy of the state of one search. It never aliases the live
// placement.
type Snapshot struct {
	Run           int                 `json:"run"`
	Round         int                 `json:"round"`
	Temperature   float64             `json:"temperature"`
	Accepted      int                 `json:"accepted"`
	Rejected      int                 `json:"rejected"`
	Rollbacks     int                 `json:"rollbacks"`
	Current       cost.Breakdown      `json:"current"`
	Best          cost.Breakdown      `json:"best"`
	Rows          int                 `json:"rows"`
	Cols          int                 `json:"cols"`
	Positions     []mesh.Coordinate   `json:"positions"`
	BestPositions []mesh.Coordinate   `json:"best_positions"`
	Links         []linkload.LinkLoad `json:"links"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type runSummary struct {
	Run         int     `json:"run"`
	Round       int     `json:"round"`
	Temperature float64 `json:"temperature"`
	Cost        float64 `json:"cost"`
	Best        float64 `json:"best"`
}

// Monitor is a hook that keeps a snapshot of every search it is attached to
// and serves them over HTTP.
type Monitor struct {
	portNumber      int
	numTemperatures uint64
	metrics         http.Handler

	lock         sync.Mutex
	snapshots    map[int]*Snapshot
	progressBars map[int]*ProgressBar

	server *http.Server
	url    string
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		snapshots:    make(map[int]*Snapshot),
		progressBars: make(map[int]*ProgressBar),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithSchedule sets the schedule used to size the progress bars.
func (m *Monitor) WithSchedule(c annealing.Config) *Monitor {
	m.numTemperatures = uint64(c.NumTemperatures())
	return m
}

// WithMetricsHandler serves the handler under /metrics.
func (m *Monitor) WithMetricsHandler(h http.Handler) *Monitor {
	m.metrics = h
	return m
}

// Func records an annealing step.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	step, ok := ctx.Item.(annealing.Step)
	if !ok {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	s := m.snapshotOf(step.Run)

	switch ctx.Pos {
	case annealing.HookPosTemperatureStart:
		m.progressBarOf(step.Run)
		m.capture(s, step)
	case annealing.HookPosTemperatureEnd:
		m.progressBarOf(step.Run).IncrementFinished(1)
		m.capture(s, step)
	case annealing.HookPosNewBest:
		s.Best = step.Best
		s.BestPositions = step.State.Positions()
	case annealing.HookPosRollback:
		s.Rollbacks++
	}
}

func (m *Monitor) snapshotOf(run int) *Snapshot {
	s, ok := m.snapshots[run]
	if !ok {
		s = &Snapshot{Run: run}
		m.snapshots[run] = s
	}

	return s
}

func (m *Monitor) progressBarOf(run int) *ProgressBar {
	bar, ok := m.progressBars[run]
	if !ok {
		bar = &ProgressBar{
			ID:        xid.New().String(),
			Name:      fmt.Sprintf("run %d", run),
			StartTime: time.Now(),
			Total:     m.numTemperatures,
		}
		m.progressBars[run] = bar
	}

	return bar
}

func (m *Monitor) capture(s *Snapshot, step annealing.Step) {
	s.Round = step.Round
	s.Temperature = step.Temperature
	s.Accepted = step.Accepted
	s.Rejected = step.Rejected
	s.Current = step.Current
	s.Best = step.Best
	s.UpdatedAt = time.Now()

	if step.State == nil {
		return
	}

	layout := step.State.Layout()
	s.Rows, s.Cols = layout.Rows(), layout.Cols()
	s.Positions = layout.Positions()
	s.Links = step.State.Network().Links()

	if s.BestPositions == nil {
		s.BestPositions = s.Positions
	}
}

// CompleteRun marks the progress bar of a run as done.
func (m *Monitor) CompleteRun(run int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.progressBarOf(run).Complete()
}

// Snapshot returns a copy of the latest snapshot of a run.
func (m *Monitor) Snapshot(run int) (Snapshot, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, ok := m.snapshots[run]
	if !ok {
		return Snapshot{}, false
	}

	c := *s
	c.Positions = append([]mesh.Coordinate(nil), s.Positions...)
	c.BestPositions = append([]mesh.Coordinate(nil), s.BestPositions...)
	c.Links = append([]linkload.LinkLoad(nil), s.Links...)

	return c, true
}

// Handler returns the routes of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/runs", m.listRuns)
	r.HandleFunc("/api/run/{run:[0-9]+}", m.runDetails)
	r.HandleFunc("/api/run/{run:[0-9]+}/field/{path}", m.runField)
	r.HandleFunc("/api/run/{run:[0-9]+}/links", m.runLinks)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.metrics != nil {
		r.Handle("/metrics", m.metrics)
	}

	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the address.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Monitoring search with %s\n", m.url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic(err)
		}
	}()

	return m.url, nil
}

// OpenInBrowser opens the monitor page.
func (m *Monitor) OpenInBrowser() error {
	if m.url == "" {
		return errors.New("the monitor is not serving")
	}

	return browser.OpenURL(m.url)
}

// Stop shuts the server down.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) listRuns(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()

	runs := make([]runSummary, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		runs = append(runs, runSummary{
			Run:         s.Run,
			Round:       s.Round,
			Temperature: s.Temperature,
			Cost:        s.Current.Total,
			Best:        s.Best.Total,
		})
	}

	m.lock.Unlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].Run < runs[j].Run })

	writeJSON(w, runs)
}

func (m *Monitor) findRunOr404(w http.ResponseWriter, r *http.Request) (Snapshot, bool) {
	run, err := strconv.Atoi(mux.Vars(r)["run"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return Snapshot{}, false
	}

	s, ok := m.Snapshot(run)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Run not found"))
		dieOnErr(err)
	}

	return s, ok
}

func (m *Monitor) runDetails(w http.ResponseWriter, r *http.Request) {
	s, ok := m.findRunOr404(w, r)
	if !ok {
		return
	}

	writeJSON(w, s)
}

func (m *Monitor) runField(w http.ResponseWriter, r *http.Request) {
	s, ok := m.findRunOr404(w, r)
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&s)
	serializer.SetMaxDepth(1)

	err := serializer.SetEntryPoint(strings.Split(mux.Vars(r)["path"], "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	dieOnErr(serializer.Serialize(w))
}

func (m *Monitor) runLinks(w http.ResponseWriter, r *http.Request) {
	s, ok := m.findRunOr404(w, r)
	if !ok {
		return
	}

	writeJSON(w, s.Links)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()

	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.response())
	}

	m.lock.Unlock()

	sort.Slice(bars, func(i, j int) bool { return bars[i].Name < bars[j].Name })

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memory, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
