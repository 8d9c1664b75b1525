// Package config loads the INI configuration file shared by the global node
// and query node binaries: a [data] section describing the dataset and
// on-disk layout, a [task] section describing the query workload, and a
// [querynode] section enumerating the query-node fleet.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// DataConfig mirrors the [data] section: dataset shape and file layout.
type DataConfig struct {
	D          int    // vector dimension
	Nb         int    // number of base vectors
	Mp         int    // number of product sub-quantizers
	NCentroids int    // number of coarse clusters (kc)
	IndexPath  string // directory holding codebooks
	DBPath     string // directory holding posting lists and segments
	QueryPath  string // directory holding query.fvecs / query_groundtruth.ivecs
}

// TaskConfig mirrors the [task] section: workload parameters.
type TaskConfig struct {
	Nq           int // number of queries to run
	Nprobe       int // number of clusters probed per query (w)
	K            int // number of neighbors requested per query
	BatchSize    int
	NumThreads   int
	GlobalCaches int // number of hot clusters pinned in the global cache
}

// QueryNodeEndpoint is one entry of the query-node fleet.
type QueryNodeEndpoint struct {
	Host string
	Port int
}

// QueryNodeConfig mirrors the [querynode] section.
type QueryNodeConfig struct {
	Nodes []QueryNodeEndpoint
}

// Config is the fully parsed configuration file.
type Config struct {
	Data      DataConfig
	Task      TaskConfig
	QueryNode QueryNodeConfig
}

// Load parses path as an INI file with [data], [task] and [querynode]
// sections and validates the result.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	data := f.Section("data")
	task := f.Section("task")
	qn := f.Section("querynode")

	cfg := &Config{
		Data: DataConfig{
			D:          data.Key("D").MustInt(0),
			Nb:         data.Key("nb").MustInt(0),
			Mp:         data.Key("mp").MustInt(0),
			NCentroids: data.Key("ncentroids").MustInt(0),
			IndexPath:  data.Key("index_path").String(),
			DBPath:     data.Key("db_path").String(),
			QueryPath:  data.Key("query_path").String(),
		},
		Task: TaskConfig{
			Nq:           task.Key("nq").MustInt(0),
			Nprobe:       task.Key("nprobe").MustInt(0),
			K:            task.Key("k").MustInt(0),
			BatchSize:    task.Key("batch_size").MustInt(1),
			NumThreads:   task.Key("num_threads").MustInt(1),
			GlobalCaches: task.Key("global_caches").MustInt(0),
		},
	}

	numQueryNodes := qn.Key("num_querynodes").MustInt(0)
	cfg.QueryNode.Nodes = make([]QueryNodeEndpoint, 0, numQueryNodes)
	for i := 0; i < numQueryNodes; i++ {
		host := qn.Key(fmt.Sprintf("a%d", i)).String()
		port := qn.Key(fmt.Sprintf("p%d", i)).MustInt(0)
		cfg.QueryNode.Nodes = append(cfg.QueryNode.Nodes, QueryNodeEndpoint{Host: host, Port: port})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structural invariants the rest of the system assumes
// hold for a configuration file: positive dimensions, a product quantizer
// that evenly divides the vector dimension, and at least one query node.
func (c *Config) Validate() error {
	if c.Data.D <= 0 {
		return fmt.Errorf("config: invalid D: %d (must be > 0)", c.Data.D)
	}
	if c.Data.Mp <= 0 {
		return fmt.Errorf("config: invalid mp: %d (must be > 0)", c.Data.Mp)
	}
	if c.Data.D%c.Data.Mp != 0 {
		return fmt.Errorf("config: D=%d is not divisible by mp=%d", c.Data.D, c.Data.Mp)
	}
	if c.Data.NCentroids <= 0 {
		return fmt.Errorf("config: invalid ncentroids: %d (must be > 0)", c.Data.NCentroids)
	}
	if c.Data.IndexPath == "" {
		return fmt.Errorf("config: index_path not specified")
	}
	if c.Data.DBPath == "" {
		return fmt.Errorf("config: db_path not specified")
	}
	if c.Task.Nprobe < 0 {
		return fmt.Errorf("config: invalid nprobe: %d (must be >= 0)", c.Task.Nprobe)
	}
	if c.Task.K < 0 {
		return fmt.Errorf("config: invalid k: %d (must be >= 0)", c.Task.K)
	}
	if c.Task.NumThreads <= 0 {
		return fmt.Errorf("config: invalid num_threads: %d (must be > 0)", c.Task.NumThreads)
	}
	if len(c.QueryNode.Nodes) == 0 {
		return fmt.Errorf("config: no query nodes configured")
	}
	for i, n := range c.QueryNode.Nodes {
		if n.Host == "" {
			return fmt.Errorf("config: query node %d has no host", i)
		}
		if n.Port <= 0 || n.Port > 65535 {
			return fmt.Errorf("config: query node %d has invalid port %d", i, n.Port)
		}
	}
	return nil
}

// Address returns host:port for a query node endpoint.
func (e QueryNodeEndpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}
