package binaryio

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestFloat32RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vecs.fvecs")
	want := [][]float32{
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{9, 9, 9, 9},
	}
	if err := WriteFloat32Records(path, 4, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	dim, got, err := ReadFloat32Records(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if dim != 4 {
		t.Fatalf("dim = %d, want 4", dim)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUint8RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codes.ui8vecs")
	want := [][]byte{
		{1, 2, 3},
		{255, 0, 128},
	}
	if err := WriteUint8Records(path, 3, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	dim, got, err := ReadUint8Records(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if dim != 3 {
		t.Fatalf("dim = %d, want 3", dim)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUint32RecordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "id_0.uivecs")
	want := []uint32{7, 3, 9, 1}
	if err := WriteUint32Record(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadUint32Record(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUint32RecordsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query_groundtruth.ivecs")
	want := [][]uint32{{0, 1, 2}, {3, 4, 5}}
	if err := WriteUint32Records(path, 3, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, got, err := ReadUint32Records(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUint64RecordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posting_lists_lens.ulvecs")
	want := []uint64{100, 200, 300}
	if err := WriteUint64Record(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadUint64Record(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadUint32RecordRejectsMultipleRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.uivecs")
	if err := WriteFloat32Records(path, 2, [][]float32{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadUint32Record(path); err == nil {
		t.Fatalf("expected error reading a multi-record file as a single record")
	}
}
