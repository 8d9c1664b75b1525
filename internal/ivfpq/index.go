// Package ivfpq implements the IVFPQ index: trained coarse and product
// codebooks, per-cluster posting lists and PQ-code segments, and the
// coarse-probe / asymmetric-scan query operations that the coordinator and
// query node build on.
package ivfpq

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lcj2021/mini-ivf-sub001/internal/quant"
	"github.com/lcj2021/mini-ivf-sub001/internal/simd"
	"github.com/lcj2021/mini-ivf-sub001/internal/types"
)

// ErrInvariant marks a detected violation of one of the data-model
// invariants (§3 of the specification): a corrupt or inconsistent database.
// It is fatal to the owning process by convention, but is returned as a
// plain error here so the caller (RPC handler or CLI main) decides how to
// surface it.
var ErrInvariant = errors.New("ivfpq: invariant violation")

// Config mirrors the index construction parameters carried by the
// coordinator's indexInit RPC: N, D, L, kc, kp, mc, mp, dc, dp plus the two
// filesystem paths.
type Config struct {
	N         uint64
	D         uint64
	L         uint64
	Kc        uint64
	Kp        uint64
	Mc        uint64
	Mp        uint64
	Dc        uint64
	Dp        uint64
	IndexPath string
	DBPath    string
}

// Validate checks the cross-field constraints the rest of the package
// assumes hold: D divisible by Mp, Kp fixed at 256, Kc within bound, and
// the coarse-quantizer degenerate-dimension convention Dc==D, Mc==1.
func (c Config) Validate() error {
	if c.D == 0 {
		return fmt.Errorf("ivfpq: D must be positive")
	}
	if c.Mp == 0 || c.D%c.Mp != 0 {
		return fmt.Errorf("ivfpq: D=%d must be divisible by Mp=%d", c.D, c.Mp)
	}
	if c.Dp != c.D/c.Mp {
		return fmt.Errorf("ivfpq: Dp=%d does not equal D/Mp=%d", c.Dp, c.D/c.Mp)
	}
	if c.Kc == 0 || c.Kc > types.MaxClusterNum {
		return fmt.Errorf("ivfpq: Kc=%d out of range (1..%d)", c.Kc, types.MaxClusterNum)
	}
	if c.Kp != types.ProductCentroidCount {
		return fmt.Errorf("ivfpq: Kp=%d must equal %d", c.Kp, types.ProductCentroidCount)
	}
	if c.Mc != 1 {
		return fmt.Errorf("ivfpq: Mc=%d must equal 1 (coarse quantizer has a single subspace)", c.Mc)
	}
	if c.Dc != c.D {
		return fmt.Errorf("ivfpq: Dc=%d must equal D=%d", c.Dc, c.D)
	}
	return nil
}

// Index owns the trained codebooks and the resident posting lists /
// PQ-code segments. A coordinator keeps one Index to serve its coarse probe
// and global cache; a query node keeps one Index to serve its resident
// shard.
type Index struct {
	cfg     Config
	coarse  *quant.Quantizer // M=1, K=kc
	product *quant.Quantizer // M=mp, K=256

	mu           sync.RWMutex
	postingLists [][]types.VectorId // len kc
	segments     [][]byte           // len kc, segments[c] has len mp*len(postingLists[c])
}

// New constructs an untrained (no codebooks loaded, nothing resident) index
// from a validated config.
func New(cfg Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Index{
		cfg:          cfg,
		postingLists: make([][]types.VectorId, cfg.Kc),
		segments:     make([][]byte, cfg.Kc),
	}, nil
}

// Config returns the index's construction parameters.
func (ix *Index) Config() Config { return ix.cfg }

// LoadCodeBook reads the coarse and product centroids from cfg.IndexPath
// into the index. Must be called before Populate, TopWID or TopKID.
func (ix *Index) LoadCodeBook() error {
	coarse, err := quant.LoadCentroids(coarseCentroidsPath(ix.cfg.IndexPath), 1, int(ix.cfg.Kc))
	if err != nil {
		return fmt.Errorf("ivfpq: load coarse codebook: %w", err)
	}
	product, err := quant.LoadCentroids(productCentroidsPath(ix.cfg.IndexPath), int(ix.cfg.Mp), int(ix.cfg.Kp))
	if err != nil {
		return fmt.Errorf("ivfpq: load product codebook: %w", err)
	}
	ix.mu.Lock()
	ix.coarse = coarse
	ix.product = product
	ix.mu.Unlock()
	return nil
}

// SetCodeBook installs already-constructed quantizers directly (used by the
// offline population tool, which trains and populates in one process rather
// than loading a codebook from disk first).
func (ix *Index) SetCodeBook(coarse, product *quant.Quantizer) {
	ix.mu.Lock()
	ix.coarse = coarse
	ix.product = product
	ix.mu.Unlock()
}

// WriteCodeBook persists the coarse and product codebooks to cfg.IndexPath.
func (ix *Index) WriteCodeBook() error {
	ix.mu.RLock()
	coarse, product := ix.coarse, ix.product
	ix.mu.RUnlock()
	if coarse == nil || product == nil {
		return fmt.Errorf("ivfpq: WriteCodeBook called before a codebook was loaded or set")
	}
	if err := coarse.WriteCentroids(coarseCentroidsPath(ix.cfg.IndexPath)); err != nil {
		return fmt.Errorf("ivfpq: write coarse codebook: %w", err)
	}
	if err := product.WriteCentroids(productCentroidsPath(ix.cfg.IndexPath)); err != nil {
		return fmt.Errorf("ivfpq: write product codebook: %w", err)
	}
	return nil
}

// Populate assigns every vector to its nearest coarse cluster and encodes
// it into that cluster's PQ segment, following the two-phase algorithm of
// §4.3.1: first a lock-per-cluster scatter of vector ids into posting
// lists, then a lockless per-cluster pass appending precomputed PQ codes in
// posting-list order. The PQ encoding is computed once for the whole batch
// before either phase, since re-encoding per cluster would multiply the
// work by kc.
func (ix *Index) Populate(vectors [][]float32, numWorkers int) error {
	ix.mu.Lock()
	coarse, product := ix.coarse, ix.product
	ix.mu.Unlock()
	if coarse == nil || product == nil {
		return fmt.Errorf("ivfpq: Populate called before a codebook was loaded or set")
	}
	n := len(vectors)
	for i, v := range vectors {
		if len(v) != int(ix.cfg.D) {
			return fmt.Errorf("ivfpq: vector %d has dim %d, want %d", i, len(v), ix.cfg.D)
		}
	}

	codes, err := product.EncodeProduct(vectors)
	if err != nil {
		return fmt.Errorf("ivfpq: encode PQ codes: %w", err)
	}

	kc := int(ix.cfg.Kc)
	postingLists := make([][]types.VectorId, kc)
	for c := range postingLists {
		postingLists[c] = make([]types.VectorId, 0, n/maxInt(kc, 1)+1)
	}
	locks := make([]sync.Mutex, kc)

	// Phase 1: scatter vector ids into posting lists, one lock per cluster.
	parallelFor(n, numWorkers, func(i int) {
		c := int(coarse.AssignCoarse(vectors[i]))
		locks[c].Lock()
		postingLists[c] = append(postingLists[c], types.VectorId(i))
		locks[c].Unlock()
	})

	// Phase 2: for each cluster, append each member's precomputed PQ code
	// in posting-list order. Clusters are disjoint, so no locking needed.
	mp := int(ix.cfg.Mp)
	segments := make([][]byte, kc)
	parallelFor(kc, numWorkers, func(c int) {
		pl := postingLists[c]
		seg := make([]byte, 0, len(pl)*mp)
		for _, vid := range pl {
			seg = append(seg, codes[vid]...)
		}
		segments[c] = seg
	})

	ix.mu.Lock()
	ix.postingLists = postingLists
	ix.segments = segments
	ix.mu.Unlock()
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// WriteIndex writes every resident cluster's posting list and segment to
// dbPath, plus the codebooks to cfg.IndexPath.
func (ix *Index) WriteIndex() error {
	if err := ix.WriteCodeBook(); err != nil {
		return err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for c := 0; c < len(ix.postingLists); c++ {
		pl := ix.postingLists[c]
		if len(pl) == 0 {
			// An empty cluster is valid (§8 boundary behaviors) and is
			// simply represented by the absence of its files: writing a
			// zero-record frame for the segment file would produce a file
			// too short to carry even the 4-byte dimension header.
			continue
		}
		if err := writePostingListAndSegment(ix.cfg.DBPath, types.ClusterId(c), pl, ix.segments[c]); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromBook materializes exactly the requested clusters: every
// currently-resident cluster not in clusters is evicted (its storage
// freed), and every requested cluster is (re)read from dbPath. This is the
// operation the coordinator invokes on each node between balance rounds.
func (ix *Index) LoadFromBook(clusters []types.ClusterId, dbPath string) error {
	kc := len(ix.postingLists)
	want := make(map[types.ClusterId]bool, len(clusters))
	for _, c := range clusters {
		if int(c) >= kc {
			return fmt.Errorf("ivfpq: cluster id %d out of range [0,%d)", c, kc)
		}
		want[c] = true
	}

	newPostingLists := make([][]types.VectorId, kc)
	newSegments := make([][]byte, kc)
	for _, c := range clusters {
		pl, seg, err := readPostingListAndSegment(dbPath, c, int(ix.cfg.Mp))
		if err != nil {
			return err
		}
		newPostingLists[c] = pl
		newSegments[c] = seg
	}

	ix.mu.Lock()
	ix.postingLists = newPostingLists
	ix.segments = newSegments
	ix.mu.Unlock()
	return nil
}

// clusterDistance is an intermediate (clusterId, distance) pair used by the
// coarse probe before truncation to width w.
type clusterDistance struct {
	id   types.ClusterId
	dist float32
}

// TopWID runs the coarse probe (§4.3.3) for a batch of queries: for each
// query, the w nearest coarse centroids by ascending squared-L2 distance.
// w is clamped to [0, kc].
func (ix *Index) TopWID(queries [][]float32, w int, numWorkers int) ([][]types.ClusterId, error) {
	ix.mu.RLock()
	coarse := ix.coarse
	ix.mu.RUnlock()
	if coarse == nil {
		return nil, fmt.Errorf("ivfpq: TopWID called before a codebook was loaded")
	}
	kc := coarse.K
	if w < 0 {
		w = 0
	}
	if w > kc {
		w = kc
	}

	results := make([][]types.ClusterId, len(queries))
	parallelFor(len(queries), numWorkers, func(qi int) {
		query := queries[qi]
		dists := make([]clusterDistance, kc)
		for c := 0; c < kc; c++ {
			dists[c] = clusterDistance{id: types.ClusterId(c), dist: 0}
		}
		for c := 0; c < kc; c++ {
			dists[c].dist = simd.L2Sqr(query, coarse.Centroids[0][c])
		}
		sort.Slice(dists, func(i, j int) bool {
			if dists[i].dist != dists[j].dist {
				return dists[i].dist < dists[j].dist
			}
			return dists[i].id < dists[j].id
		})
		out := make([]types.ClusterId, w)
		for i := 0; i < w; i++ {
			out[i] = dists[i].id
		}
		results[qi] = out
	})
	return results, nil
}

// candidate is a (vectorId, distance) pair produced during the asymmetric
// scan, before truncation to the top-k.
type candidate struct {
	id   types.VectorId
	dist float32
}

// TopKID runs the asymmetric scan (§4.3.4) for a batch of queries, each
// restricted to its own probe list of locally-resident clusters. Clusters
// that are not resident (nil posting list) contribute nothing, matching
// the "empty cluster is valid" boundary behavior; callers are expected to
// only probe clusters they actually hold, per protocol.
func (ix *Index) TopKID(k int, queries [][]float32, probeLists [][]types.ClusterId, numWorkers int) ([][]types.VectorId, [][]float32, error) {
	ix.mu.RLock()
	product := ix.product
	postingLists := ix.postingLists
	segments := ix.segments
	ix.mu.RUnlock()
	if product == nil {
		return nil, nil, fmt.Errorf("ivfpq: TopKID called before a codebook was loaded")
	}
	if len(probeLists) != len(queries) {
		return nil, nil, fmt.Errorf("ivfpq: probeLists has %d entries, want %d (one per query)", len(probeLists), len(queries))
	}
	if k < 0 {
		k = 0
	}

	mp := int(ix.cfg.Mp)
	ids := make([][]types.VectorId, len(queries))
	dists := make([][]float32, len(queries))

	parallelFor(len(queries), numWorkers, func(qi int) {
		query := queries[qi]
		table, err := product.ComputeDistanceTable(query)
		if err != nil {
			// A malformed query dimension is a protocol error; leave this
			// query's results empty rather than abort the whole batch,
			// since the caller is expected to have validated dimensions
			// up-front (see the RPC handler layer).
			ids[qi] = []types.VectorId{}
			dists[qi] = []float32{}
			return
		}
		var pairs []candidate
		for _, c := range probeLists[qi] {
			if int(c) >= len(postingLists) {
				continue
			}
			pl := postingLists[c]
			seg := segments[c]
			for i, vid := range pl {
				code := seg[i*mp : (i+1)*mp]
				pairs = append(pairs, candidate{id: vid, dist: table.AsymmetricDistance(code)})
			}
		}
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })
		limit := k
		if limit > len(pairs) {
			limit = len(pairs)
		}
		outIDs := make([]types.VectorId, limit)
		outDists := make([]float32, limit)
		for i := 0; i < limit; i++ {
			outIDs[i] = pairs[i].id
			outDists[i] = pairs[i].dist
		}
		ids[qi] = outIDs
		dists[qi] = outDists
	})
	return ids, dists, nil
}

// Stats reports cluster count, total resident vectors, and an estimate of
// in-memory bytes occupied by posting lists, segments and codebooks.
type Stats struct {
	Clusters        int
	ResidentVectors int
	MemoryBytes     int64
}

// Stats computes a snapshot of the index's current residency.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := Stats{Clusters: len(ix.postingLists)}
	for c := range ix.postingLists {
		s.ResidentVectors += len(ix.postingLists[c])
		s.MemoryBytes += int64(len(ix.postingLists[c]) * 4)
		s.MemoryBytes += int64(len(ix.segments[c]))
	}
	if ix.coarse != nil {
		s.MemoryBytes += int64(ix.coarse.M * ix.coarse.K * ix.coarse.Ds * 4)
	}
	if ix.product != nil {
		s.MemoryBytes += int64(ix.product.M * ix.product.K * ix.product.Ds * 4)
	}
	return s
}
