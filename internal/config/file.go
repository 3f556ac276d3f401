package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sipcounter/internal/aggregate"
	"sipcounter/internal/sipcounter"
)

// File is the YAML configuration file:
//
//	counter:
//	  name: edge
//	  sip_filter: [INVITE, "4"]
//	  known_ports: ["5080"]
//	  greedy: false
//	ingest:
//	  fields: /var/run/sip.fields
//	report:
//	  interval_seconds: 300
//	  depth: 3
//	  top: 10
//	  reset: true
//	log:
//	  level: debug
type File struct {
	Counter sipcounter.Config `yaml:"counter"`
	Ingest  IngestFile        `yaml:"ingest"`
	Report  ReportFile        `yaml:"report"`
	Log     LogFile           `yaml:"log"`
}

type IngestFile struct {
	Fields string `yaml:"fields"`
	Pcap   string `yaml:"pcap"`
}

type ReportFile struct {
	IntervalSeconds int  `yaml:"interval_seconds"`
	Depth           int  `yaml:"depth"`
	Top             int  `yaml:"top"`
	Reset           bool `yaml:"reset"`
}

type LogFile struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, parses and validates a configuration file.
func Load(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filename, err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	return &f, nil
}

// Validate fills defaults and checks the file.
func (f *File) Validate() error {
	if f.Report.IntervalSeconds == 0 {
		f.Report.IntervalSeconds = 60
	}
	if f.Report.IntervalSeconds < 0 {
		f.Report.IntervalSeconds = 0
	}
	if f.Report.Depth == 0 {
		f.Report.Depth = aggregate.DefaultDepth
	}
	if err := aggregate.ValidDepth(f.Report.Depth); err != nil {
		return fmt.Errorf("report.depth %d: %w", f.Report.Depth, err)
	}
	if f.Ingest.Fields != "" && f.Ingest.Pcap != "" {
		return ErrConflictingInputs
	}
	return f.Counter.Validate()
}
