package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"PortScanGo/internal/portscan"
)

// livePrinter 在轮询时打印新发现的开放端口
type livePrinter struct {
	w      io.Writer
	target string
	seen   map[int]struct{}
}

func newLivePrinter(w io.Writer, target string) *livePrinter {
	return &livePrinter{w: w, target: target, seen: make(map[int]struct{})}
}

func (l *livePrinter) update(bar *progressbar.ProgressBar, open []int) {
	for _, p := range open {
		if _, ok := l.seen[p]; ok {
			continue
		}
		l.seen[p] = struct{}{}
		_ = bar.Clear()
		color.New(color.FgGreen).Fprintf(l.w, "\r[+]Port: %s:%d Open!\n", l.target, p)
	}
}

// writeReport 开放端口列表 (或无开放端口) 加耗时
func writeReport(w io.Writer, r *portscan.Report) {
	fmt.Fprintln(w, "============================")
	if len(r.OpenPorts) == 0 {
		color.New(color.FgYellow).Fprintln(w, "[!]未发现开放端口 (no open ports found)")
	} else {
		color.New(color.FgGreen).Fprintf(w, "[+]Open Ports: %s\n", joinPorts(r.OpenPorts))
	}
	fmt.Fprintf(w, "[+]Total: %d | open: %d closed: %d timeout: %d error: %d\n",
		r.Total, r.Tally.Open, r.Tally.Closed, r.Tally.TimedOut, r.Tally.Errored)
	color.New(color.FgCyan).Fprintf(w, "[+]扫描完成!耗时: %s\n", r.Elapsed.Round(10*time.Millisecond))
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}

type jsonReport struct {
	Target    string             `json:"target"`
	Range     portscan.PortRange `json:"range"`
	OpenPorts []int              `json:"open_ports"`
	Total     int                `json:"total"`
	Tally     portscan.Tally     `json:"tally"`
	ElapsedMS int64              `json:"elapsed_ms"`
}

func writeJSON(w io.Writer, r *portscan.Report) error {
	open := r.OpenPorts
	if open == nil {
		open = []int{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Target:    r.Target,
		Range:     r.Range,
		OpenPorts: open,
		Total:     r.Total,
		Tally:     r.Tally,
		ElapsedMS: r.Elapsed.Milliseconds(),
	})
}
