package ivfpq

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcj2021/mini-ivf-sub001/internal/binaryio"
	"github.com/lcj2021/mini-ivf-sub001/internal/types"
)

func coarseCentroidsPath(indexPath string) string {
	return filepath.Join(indexPath, "cq_centers")
}

func productCentroidsPath(indexPath string) string {
	return filepath.Join(indexPath, "pq_centers")
}

func segmentPath(dbPath string, c types.ClusterId) string {
	return filepath.Join(dbPath, fmt.Sprintf("pqcode_%d.ui8vecs", c))
}

func postingListPath(dbPath string, c types.ClusterId) string {
	return filepath.Join(dbPath, fmt.Sprintf("id_%d.uivecs", c))
}

func postingListSizesPath(dbPath string) string {
	return filepath.Join(dbPath, "posting_lists_lens.ulvecs")
}

// WritePostingListSizes persists the coordinator-authoritative
// posting_lists_lens.ulvecs file from a set of posting lists.
func WritePostingListSizes(dbPath string, postingLists [][]types.VectorId) error {
	sizes := make([]uint64, len(postingLists))
	for i, pl := range postingLists {
		sizes[i] = uint64(len(pl))
	}
	return binaryio.WriteUint64Record(postingListSizesPath(dbPath), sizes)
}

// ReadPostingListSizes reads posting_lists_lens.ulvecs, asserting its length
// equals kc.
func ReadPostingListSizes(dbPath string, kc int) ([]uint64, error) {
	sizes, err := binaryio.ReadUint64Record(postingListSizesPath(dbPath))
	if err != nil {
		return nil, fmt.Errorf("ivfpq: %w", err)
	}
	if len(sizes) != kc {
		return nil, fmt.Errorf("%w: posting_lists_lens.ulvecs has %d entries, want kc=%d", ErrInvariant, len(sizes), kc)
	}
	return sizes, nil
}

// writePostingListAndSegment writes the id_<c>.uivecs and pqcode_<c>.ui8vecs
// files for one cluster.
func writePostingListAndSegment(dbPath string, c types.ClusterId, pl []types.VectorId, seg []byte) error {
	if err := binaryio.WriteUint32Record(postingListPath(dbPath, c), pl); err != nil {
		return fmt.Errorf("ivfpq: write posting list for cluster %d: %w", c, err)
	}
	mp := 0
	if len(pl) > 0 {
		mp = len(seg) / len(pl)
	}
	records := make([][]byte, len(pl))
	for i := range pl {
		records[i] = seg[i*mp : (i+1)*mp]
	}
	if mp > 0 {
		if err := binaryio.WriteUint8Records(segmentPath(dbPath, c), mp, records); err != nil {
			return fmt.Errorf("ivfpq: write segment for cluster %d: %w", c, err)
		}
	} else if err := binaryio.WriteUint8Records(segmentPath(dbPath, c), 0, records); err != nil {
		return fmt.Errorf("ivfpq: write segment for cluster %d: %w", c, err)
	}
	return nil
}

// readPostingListAndSegment reads the id_<c>.uivecs and pqcode_<c>.ui8vecs
// files for one cluster, validating the parallel-array invariant
// |Segment[c]| == mp * |PostingList[c]|. An absent posting-list file (a
// cluster that has never held any vector) is treated as empty, matching the
// boundary behavior that an empty cluster is valid.
func readPostingListAndSegment(dbPath string, c types.ClusterId, mp int) ([]types.VectorId, []byte, error) {
	pl, err := binaryio.ReadUint32Record(postingListPath(dbPath, c))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.VectorId{}, []byte{}, nil
		}
		return nil, nil, fmt.Errorf("ivfpq: read posting list for cluster %d: %w", c, err)
	}
	if len(pl) == 0 {
		return pl, []byte{}, nil
	}
	segDim, records, err := binaryio.ReadUint8Records(segmentPath(dbPath, c))
	if err != nil {
		return nil, nil, fmt.Errorf("ivfpq: read segment for cluster %d: %w", c, err)
	}
	if segDim != mp {
		return nil, nil, fmt.Errorf("%w: segment for cluster %d has record dim %d, want mp=%d", ErrInvariant, c, segDim, mp)
	}
	if len(records) != len(pl) {
		return nil, nil, fmt.Errorf("%w: segment for cluster %d has %d records, posting list has %d ids", ErrInvariant, c, len(records), len(pl))
	}
	seg := make([]byte, 0, len(records)*mp)
	for _, r := range records {
		seg = append(seg, r...)
	}
	return pl, seg, nil
}
