// Package quant implements the coarse and product quantizers: a trained
// centroid cube plus nearest-centroid assignment and byte-code encoding.
// Training the centroids (by k-means or otherwise) is outside this package's
// scope — it is performed offline and the result loaded via LoadCentroids.
package quant

import (
	"fmt"

	"github.com/lcj2021/mini-ivf-sub001/internal/binaryio"
	"github.com/lcj2021/mini-ivf-sub001/internal/simd"
)

// Quantizer holds a trained centroid cube centroids[m][k][ds] and answers
// nearest-centroid queries against it. A coarse quantizer has M=1 and
// K=kc (kc possibly in the thousands); a product quantizer has M=mp and
// K=256 (so encoded codes fit in a byte).
type Quantizer struct {
	D         int // full vector dimension
	M         int // number of sub-quantizers
	K         int // centroids per sub-quantizer
	Ds        int // D / M
	Centroids [][][]float32 // [M][K][Ds]
}

// New allocates an untrained quantizer of the given shape. D must be
// divisible by M.
func New(d, m, k int) (*Quantizer, error) {
	if m <= 0 || d <= 0 || k <= 0 {
		return nil, fmt.Errorf("quant: D, M and K must all be positive (D=%d, M=%d, K=%d)", d, m, k)
	}
	if d%m != 0 {
		return nil, fmt.Errorf("quant: D=%d not divisible by M=%d", d, m)
	}
	ds := d / m
	centroids := make([][][]float32, m)
	for i := range centroids {
		centroids[i] = make([][]float32, k)
		for j := range centroids[i] {
			centroids[i][j] = make([]float32, ds)
		}
	}
	return &Quantizer{D: d, M: m, K: k, Ds: ds, Centroids: centroids}, nil
}

// SetCentroids installs an already-trained centroid cube, validating its shape.
func (q *Quantizer) SetCentroids(centroids [][][]float32) error {
	if len(centroids) != q.M {
		return fmt.Errorf("quant: expected %d sub-quantizers, got %d", q.M, len(centroids))
	}
	for m, sub := range centroids {
		if len(sub) != q.K {
			return fmt.Errorf("quant: sub-quantizer %d has %d centroids, want %d", m, len(sub), q.K)
		}
		for k, c := range sub {
			if len(c) != q.Ds {
				return fmt.Errorf("quant: centroid [%d][%d] has dim %d, want %d", m, k, len(c), q.Ds)
			}
		}
	}
	q.Centroids = centroids
	return nil
}

// AssignOne returns argmin over k of l2sqr(x[subspace], centroids[subspace][k]),
// ties broken by smallest index. x must be the full D-dimensional vector;
// the relevant Ds-length slice of the given subspace is extracted internally.
func (q *Quantizer) AssignOne(x []float32, subspace int) uint32 {
	start := subspace * q.Ds
	sub := x[start : start+q.Ds]
	best := uint32(0)
	bestDist := simd.L2Sqr(sub, q.Centroids[subspace][0])
	for k := 1; k < q.K; k++ {
		d := simd.L2Sqr(sub, q.Centroids[subspace][k])
		if d < bestDist {
			bestDist = d
			best = uint32(k)
		}
	}
	return best
}

// AssignCoarse is a convenience wrapper for M=1 quantizers: it returns the
// nearest centroid's index directly as a cluster id.
func (q *Quantizer) AssignCoarse(x []float32) uint32 {
	return q.AssignOne(x, 0)
}

// EncodeProduct encodes a batch of vectors into per-sub-quantizer byte codes.
// Valid only when K <= 256 (true for the product quantizer, where K==256).
// The returned codes are laid out per-vector (codes[i] has length M), which
// is the byte layout a PQ-code segment uses.
func (q *Quantizer) EncodeProduct(vectors [][]float32) ([][]byte, error) {
	if q.K > 256 {
		return nil, fmt.Errorf("quant: EncodeProduct requires K<=256, got K=%d", q.K)
	}
	codes := make([][]byte, len(vectors))
	for i, v := range vectors {
		if len(v) != q.D {
			return nil, fmt.Errorf("quant: vector %d has dim %d, want %d", i, len(v), q.D)
		}
		code := make([]byte, q.M)
		for m := 0; m < q.M; m++ {
			code[m] = byte(q.AssignOne(v, m))
		}
		codes[i] = code
	}
	return codes, nil
}

// DistanceTable is the per-query mp*kp matrix of precomputed squared
// distances between one sub-vector of the query and every centroid of the
// corresponding sub-quantizer. It never holds a square root: everything
// downstream compares and sums squared distances only.
type DistanceTable struct {
	M, K int
	data []float32 // flat, m*K+k
}

// Get returns the precomputed squared distance for sub-quantizer m, centroid k.
func (t *DistanceTable) Get(m, k int) float32 {
	return t.data[m*t.K+k]
}

// ComputeDistanceTable builds the mp*kp asymmetric-distance table for one
// query vector against the product quantizer q.
func (q *Quantizer) ComputeDistanceTable(query []float32) (*DistanceTable, error) {
	if len(query) != q.D {
		return nil, fmt.Errorf("quant: query has dim %d, want %d", len(query), q.D)
	}
	t := &DistanceTable{M: q.M, K: q.K, data: make([]float32, q.M*q.K)}
	for m := 0; m < q.M; m++ {
		start := m * q.Ds
		sub := query[start : start+q.Ds]
		for k := 0; k < q.K; k++ {
			t.data[m*q.K+k] = simd.L2Sqr(sub, q.Centroids[m][k])
		}
	}
	return t, nil
}

// AsymmetricDistance sums, over every sub-quantizer, the precomputed
// distance-table entry selected by code[m]. The result is a squared
// distance; it is never square-rooted, since it is used for ordering only.
func (t *DistanceTable) AsymmetricDistance(code []byte) float32 {
	var sum float32
	for m, c := range code {
		sum += t.data[m*t.K+int(c)]
	}
	return sum
}

// WriteCentroids persists the centroid cube as a flat sequence of M*K
// records of Ds floats each (row-major over [m][k]), matching the on-disk
// codebook layout described by the persistence spec.
func (q *Quantizer) WriteCentroids(path string) error {
	records := make([][]float32, 0, q.M*q.K)
	for m := 0; m < q.M; m++ {
		records = append(records, q.Centroids[m]...)
	}
	return binaryio.WriteFloat32Records(path, q.Ds, records)
}

// LoadCentroids reads a codebook file written by WriteCentroids (or an
// external trainer producing the same layout) into a quantizer of the given
// shape.
func LoadCentroids(path string, m, k int) (*Quantizer, error) {
	ds, records, err := binaryio.ReadFloat32Records(path)
	if err != nil {
		return nil, fmt.Errorf("quant: load centroids from %s: %w", path, err)
	}
	if len(records) != m*k {
		return nil, fmt.Errorf("quant: %s has %d records, want %d (m=%d * k=%d)", path, len(records), m*k, m, k)
	}
	q, err := New(ds*m, m, k)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m; i++ {
		q.Centroids[i] = records[i*k : (i+1)*k]
	}
	return q, nil
}
