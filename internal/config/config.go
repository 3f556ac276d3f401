package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"sipcounter/internal/aggregate"
	"sipcounter/internal/sipcounter"
)

var (
	// ErrConflictingInputs is returned when more than one input source is set.
	ErrConflictingInputs = errors.New("only one of -input.fields and -input.pcap may be set")
	// ErrInvalidInterval is returned for non positive collector intervals.
	ErrInvalidInterval = errors.New("interval must be positive")
)

// StdinPath selects standard input for -input.fields.
const StdinPath = "-"

// Config holds runtime configuration for the exporter.
type Config struct {
	CollectorInterval time.Duration
	ConfigFile        string

	// Counter is the counting instance configuration, from the config file
	// and the counter.* flags.
	Counter sipcounter.Config

	InputFields string
	InputPcap   string

	ReportInterval time.Duration
	ReportDepth    int
	ReportTop      int
	ReportReset    bool

	WebTelemetryPath          string
	WebDisableExporterMetrics bool
	WebMaxRequests            int
	WebListenAddresses        multiString
	WebStreamInterval         time.Duration

	LogLevel  string
	LogFormat string

	ShowHelp    bool
	ShowVersion bool
}

// ParseFlags parses the process command line. Errors exit the process.
func ParseFlags() Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// Parse registers the flags on fs, parses args and merges the optional
// config file. Flags set explicitly on the command line win over the file.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var (
		cfg Config

		intervalSeconds       int
		reportIntervalSeconds int
		streamIntervalSeconds int
		greedy                bool
		sipFilter             multiString
		hostFilter            multiString
		hostExclude           multiString
		knownServers          multiString
		knownPorts            multiString
	)

	fs.IntVar(&intervalSeconds, "collector.interval", 15, "Seconds between metric refreshes.")
	fs.StringVar(&cfg.ConfigFile, "config.file", "", "Optional YAML configuration file.")

	fs.StringVar(&cfg.Counter.Name, "counter.name", "", "Name of the counter, printed in reports.")
	fs.Var(&sipFilter, "counter.sip-filter", "SIP request method or response code prefix to count. Repeatable.")
	fs.Var(&hostFilter, "counter.host-filter", "Only count messages from or to this host. Repeatable.")
	fs.Var(&hostExclude, "counter.host-exclude", "Ignore messages from or to this host. Repeatable.")
	fs.Var(&knownServers, "counter.known-server", "Host known to be a SIP server. Repeatable.")
	fs.Var(&knownPorts, "counter.known-port", "Port known to be a SIP service port, in addition to 5060 and 5061. Repeatable.")
	fs.BoolVar(&greedy, "counter.greedy", true, "Count every response of a filtered request when no response filter is set.")

	fs.StringVar(&cfg.InputFields, "input.fields", "", "tshark fields file to read, or - for standard input.")
	fs.StringVar(&cfg.InputPcap, "input.pcap", "", "pcap or pcapng file to read.")

	fs.IntVar(&reportIntervalSeconds, "report.interval", 60, "Seconds between report log lines. Use 0 to disable.")
	fs.IntVar(&cfg.ReportDepth, "report.depth", aggregate.DefaultDepth, "Link grouping depth of reports, 1 to 5.")
	fs.IntVar(&cfg.ReportTop, "report.top", 0, "Only report the N busiest links. Use 0 for all.")
	fs.BoolVar(&cfg.ReportReset, "report.reset", false, "Clear the counter after every report period.")

	fs.StringVar(&cfg.WebTelemetryPath, "web.telemetry-path", "/metrics", "Path under which to expose metrics.")
	fs.BoolVar(&cfg.WebDisableExporterMetrics, "web.disable-exporter-metrics", false, "Exclude metrics about the exporter itself (promhttp_*, process_*, go_*).")
	fs.IntVar(&cfg.WebMaxRequests, "web.max-requests", 40, "Maximum number of parallel scrape requests. Use 0 to disable.")
	fs.Var(&cfg.WebListenAddresses, "web.listen-address", "Addresses on which to expose metrics and web interface. Repeatable for multiple addresses. Examples: :9100 or [::1]:9100")
	fs.IntVar(&streamIntervalSeconds, "web.stream-interval", 10, "Seconds between summaries pushed on /api/v1/stream.")

	fs.StringVar(&cfg.LogLevel, "log.level", "info", "Only log messages with the given severity or above. One of: [debug, info, warn, error]")
	fs.StringVar(&cfg.LogFormat, "log.format", "logfmt", "Output format of log messages. One of: [logfmt, json]")

	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help and exit.")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help and exit.")

	// Aliases.
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show application version and exit.")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show application version and exit.")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.ShowHelp || cfg.ShowVersion {
		return cfg, nil
	}

	cfg.Counter.SIPFilter = sipFilter
	cfg.Counter.HostFilter = hostFilter
	cfg.Counter.HostExclude = hostExclude
	cfg.Counter.KnownServers = knownServers
	cfg.Counter.KnownPorts = knownPorts
	cfg.Counter.Greedy = sipcounter.Bool(greedy)

	cfg.CollectorInterval = time.Duration(intervalSeconds) * time.Second
	cfg.ReportInterval = time.Duration(reportIntervalSeconds) * time.Second
	cfg.WebStreamInterval = time.Duration(streamIntervalSeconds) * time.Second

	if cfg.ConfigFile != "" {
		f, err := Load(cfg.ConfigFile)
		if err != nil {
			return cfg, err
		}
		set := map[string]bool{}
		fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
		cfg.merge(f, set)
	}

	if len(cfg.WebListenAddresses) == 0 {
		cfg.WebListenAddresses = append(cfg.WebListenAddresses, ":9100")
	}

	return cfg, cfg.Validate()
}

// merge copies file values into cfg for every flag not in set.
func (c *Config) merge(f *File, set map[string]bool) {
	if !set["counter.name"] && f.Counter.Name != "" {
		c.Counter.Name = f.Counter.Name
	}
	mergeList(&c.Counter.SIPFilter, f.Counter.SIPFilter, set["counter.sip-filter"])
	mergeList(&c.Counter.HostFilter, f.Counter.HostFilter, set["counter.host-filter"])
	mergeList(&c.Counter.HostExclude, f.Counter.HostExclude, set["counter.host-exclude"])
	mergeList(&c.Counter.KnownServers, f.Counter.KnownServers, set["counter.known-server"])
	mergeList(&c.Counter.KnownPorts, f.Counter.KnownPorts, set["counter.known-port"])
	if !set["counter.greedy"] && f.Counter.Greedy != nil {
		c.Counter.Greedy = sipcounter.Bool(*f.Counter.Greedy)
	}

	if !set["input.fields"] && !set["input.pcap"] {
		c.InputFields, c.InputPcap = f.Ingest.Fields, f.Ingest.Pcap
	}

	if !set["report.interval"] {
		c.ReportInterval = time.Duration(f.Report.IntervalSeconds) * time.Second
	}
	if !set["report.depth"] {
		c.ReportDepth = f.Report.Depth
	}
	if !set["report.top"] {
		c.ReportTop = f.Report.Top
	}
	if !set["report.reset"] {
		c.ReportReset = f.Report.Reset
	}

	if !set["log.level"] && f.Log.Level != "" {
		c.LogLevel = f.Log.Level
	}
	if !set["log.format"] && f.Log.Format != "" {
		c.LogFormat = f.Log.Format
	}
}

func mergeList(dst *[]string, file []string, flagSet bool) {
	if flagSet || len(file) == 0 {
		return
	}
	*dst = append([]string(nil), file...)
}

// Validate checks cross field constraints.
func (c Config) Validate() error {
	if c.InputFields != "" && c.InputPcap != "" {
		return ErrConflictingInputs
	}
	if c.CollectorInterval <= 0 {
		return fmt.Errorf("collector.interval: %w", ErrInvalidInterval)
	}
	if c.WebStreamInterval <= 0 {
		return fmt.Errorf("web.stream-interval: %w", ErrInvalidInterval)
	}
	if c.ReportInterval < 0 {
		return fmt.Errorf("report.interval: %w", ErrInvalidInterval)
	}
	if err := aggregate.ValidDepth(c.ReportDepth); err != nil {
		return fmt.Errorf("report.depth %d: %w", c.ReportDepth, err)
	}
	if c.ReportTop < 0 {
		return fmt.Errorf("report.top must not be negative, got %d", c.ReportTop)
	}
	if err := c.Counter.Validate(); err != nil {
		return fmt.Errorf("counter: %w", err)
	}
	return nil
}

type multiString []string

func (m *multiString) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *multiString) Set(value string) error {
	*m = append(*m, value)
	return nil
}
