package cluster

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChunkOptions configures ClusterInChunks.
type ChunkOptions struct {
	Size    int // points per chunk; default 10,000
	Params  Params
	Workers int // chunks clustered concurrently; <=1 runs sequentially
}

// Chunks returns the [start, end) bounds of consecutive chunks of size over n points.
func Chunks(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// ClusterInChunks splits points into contiguous chunks, runs DBSCAN on each chunk
// independently and returns the labels in input order.
//
// Labels are chunk-local: equal labels in different chunks are unrelated, and a
// cluster straddling a chunk boundary is split. Running with several workers
// yields exactly the sequential result.
func ClusterInChunks(ctx context.Context, points []Point, opts ChunkOptions) ([]int, error) {
	if opts.Params.MinSamples <= 0 {
		opts.Params.MinSamples = DefaultMinSamples
	}
	if opts.Params.Eps <= 0 {
		opts.Params.Eps = DefaultEps
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	labels := make([]int, len(points))
	chunks := Chunks(len(points), opts.Size)
	log := zap.L().With(zap.String("component", "cluster"))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrapf(err, "cluster: chunk %d", i)
			}
			copy(labels[c[0]:c[1]], DBSCAN(points[c[0]:c[1]], opts.Params))
			log.Debug("chunk clustered",
				zap.Int("chunk", i),
				zap.Int("start", c[0]),
				zap.Int("end", c[1]),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("clustering complete",
		zap.Int("points", len(points)),
		zap.Int("chunks", len(chunks)),
		zap.Int("workers", workers),
	)
	return labels, nil
}
