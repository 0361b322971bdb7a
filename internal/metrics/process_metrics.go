package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessCollector samples CPU and memory of the supervised child at scrape time.
// pid returns 0 while no child is running, in which case nothing is reported.
type ProcessCollector struct {
	pid     func() int
	cpu     *prometheus.Desc
	rss     *prometheus.Desc
	threads *prometheus.Desc
}

func NewProcessCollector(pid func() int) *ProcessCollector {
	return &ProcessCollector{
		pid: pid,
		cpu: prometheus.NewDesc("servermgr_child_cpu_percent",
			"CPU usage of the child process in percent.", nil, nil),
		rss: prometheus.NewDesc("servermgr_child_memory_rss_bytes",
			"Resident set size of the child process.", nil, nil),
		threads: prometheus.NewDesc("servermgr_child_threads",
			"Number of threads of the child process.", nil, nil),
	}
}

func (c *ProcessCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpu
	ch <- c.rss
	ch <- c.threads
}

func (c *ProcessCollector) Collect(ch chan<- prometheus.Metric) {
	pid := c.pid()
	if pid <= 0 {
		return
	}
	proc, err := process.NewProcess(int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		return
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.GaugeValue, cpu)
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.rss, prometheus.GaugeValue, float64(mem.RSS))
	}
	if n, err := proc.NumThreads(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.threads, prometheus.GaugeValue, float64(n))
	}
}
