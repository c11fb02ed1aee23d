// Package diagnostics gathers host machine information, an optional
// process-tree snapshot, and optional per-folder workspace statistics into
// a single diagnostic record. The sub-gathers run concurrently.
package diagnostics

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MachineInfo describes the host machine.
type MachineInfo struct {
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	CPUs     int    `json:"cpus"`
	Hostname string `json:"hostname,omitempty"`
}

// ProcessInfo is one node of a process-tree snapshot.
type ProcessInfo struct {
	PID      int            `json:"pid"`
	Name     string         `json:"name"`
	Cmd      string         `json:"cmd,omitempty"`
	CPULoad  float64        `json:"cpuLoad,omitempty"`
	Children []*ProcessInfo `json:"children,omitempty"`
}

// WorkspaceStats summarizes the contents of one workspace folder.
type WorkspaceStats struct {
	Path           string         `json:"path"`
	FileCount      int            `json:"fileCount"`
	MaxDepthHit    bool           `json:"maxDepthHit,omitempty"`
	FileTypeCounts map[string]int `json:"fileTypeCounts,omitempty"`
}

// ProcessInspector snapshots the process tree rooted at a PID.
type ProcessInspector interface {
	ListProcesses(ctx context.Context, pid int) (*ProcessInfo, error)
}

// WorkspaceStatsCollector computes statistics for one folder.
type WorkspaceStatsCollector interface {
	Collect(ctx context.Context, path string, excludeNames []string) (*WorkspaceStats, error)
}

// Options selects what a diagnostics gather includes.
type Options struct {
	IncludeProcesses bool
	Folders          []string
	ExcludeNames     []string
}

// Info is the complete diagnostic record.
type Info struct {
	Machine    MachineInfo       `json:"machine"`
	Processes  *ProcessInfo      `json:"processes,omitempty"`
	Workspaces []*WorkspaceStats `json:"workspaces,omitempty"`
}

// Gatherer joins the independent diagnostic sub-gathers.
type Gatherer struct {
	inspector ProcessInspector
	collector WorkspaceStatsCollector
	log       *slog.Logger
}

// NewGatherer creates a gatherer. Either collaborator may be nil, in which
// case the corresponding gather is skipped.
func NewGatherer(inspector ProcessInspector, collector WorkspaceStatsCollector, log *slog.Logger) *Gatherer {
	if log == nil {
		log = slog.Default()
	}
	return &Gatherer{inspector: inspector, collector: collector, log: log}
}

// Gather runs the process-tree snapshot and the per-folder statistics in
// parallel and joins them into one record.
func (g *Gatherer) Gather(ctx context.Context, opts Options) (*Info, error) {
	info := &Info{Machine: machineInfo()}

	eg, gctx := errgroup.WithContext(ctx)

	if opts.IncludeProcesses && g.inspector != nil {
		eg.Go(func() error {
			tree, err := g.inspector.ListProcesses(gctx, os.Getpid())
			if err != nil {
				g.log.Warn("process-tree snapshot failed", "err", err)
				return nil
			}
			info.Processes = tree
			return nil
		})
	}

	stats := make([]*WorkspaceStats, len(opts.Folders))
	if g.collector != nil {
		for i, folder := range opts.Folders {
			i, folder := i, folder
			eg.Go(func() error {
				st, err := g.collector.Collect(gctx, folder, opts.ExcludeNames)
				if err != nil {
					g.log.Warn("workspace stats gather failed", "folder", folder, "err", err)
					return nil
				}
				stats[i] = st
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, st := range stats {
		if st != nil {
			info.Workspaces = append(info.Workspaces, st)
		}
	}
	return info, nil
}

func machineInfo() MachineInfo {
	hostname, _ := os.Hostname()
	return MachineInfo{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUs:     runtime.NumCPU(),
		Hostname: hostname,
	}
}
