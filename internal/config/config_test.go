package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleINI = `
[data]
D = 128
nb = 1000000
mp = 16
ncentroids = 4096
index_path = /data/index
db_path = /data/db
query_path = /data/query

[task]
nq = 1000
nprobe = 8
k = 10
batch_size = 100
num_threads = 4
global_caches = 64

[querynode]
num_querynodes = 2
a0 = 10.0.0.1
p0 = 50051
a1 = 10.0.0.2
p1 = 50051
`

func writeSample(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "minivf.ini")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write sample ini: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeSample(t, sampleINI)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.D != 128 || cfg.Data.Mp != 16 || cfg.Data.NCentroids != 4096 {
		t.Fatalf("data section = %+v", cfg.Data)
	}
	if cfg.Data.IndexPath != "/data/index" || cfg.Data.DBPath != "/data/db" {
		t.Fatalf("data paths = %+v", cfg.Data)
	}
	if cfg.Task.Nq != 1000 || cfg.Task.Nprobe != 8 || cfg.Task.K != 10 {
		t.Fatalf("task section = %+v", cfg.Task)
	}
	if len(cfg.QueryNode.Nodes) != 2 {
		t.Fatalf("want 2 query nodes, got %d", len(cfg.QueryNode.Nodes))
	}
	if cfg.QueryNode.Nodes[0].Address() != "10.0.0.1:50051" {
		t.Fatalf("node 0 address = %s", cfg.QueryNode.Nodes[0].Address())
	}
	if cfg.QueryNode.Nodes[1].Address() != "10.0.0.2:50051" {
		t.Fatalf("node 1 address = %s", cfg.QueryNode.Nodes[1].Address())
	}
}

func TestLoadRejectsIndivisibleDimension(t *testing.T) {
	bad := `
[data]
D = 128
nb = 100
mp = 5
ncentroids = 16
index_path = /x
db_path = /y
query_path = /z

[task]
nq = 1
nprobe = 1
k = 1
num_threads = 1

[querynode]
num_querynodes = 1
a0 = localhost
p0 = 50051
`
	path := writeSample(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for D not divisible by mp")
	}
}

func TestLoadRejectsNoQueryNodes(t *testing.T) {
	bad := `
[data]
D = 4
nb = 10
mp = 2
ncentroids = 2
index_path = /x
db_path = /y
query_path = /z

[task]
nq = 1
nprobe = 1
k = 1
num_threads = 1

[querynode]
num_querynodes = 0
`
	path := writeSample(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for zero query nodes")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
