package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Coordinates outside this range lose integer precision in a float64 and
// cannot be stored exactly, so Set rejects them.
const (
	maxPreciseFloat64 = float64(1 << 24)
	minPreciseFloat64 = -float64(1 << 24)
)

// PointAndData is a tiny struct to facilitate returning nearest neighbors in
// a neat way.
type PointAndData struct {
	P r3.Vector
	D Data
}

type storage interface {
	Size() int
	Set(p r3.Vector, d Data) error
	Unset(x, y, z float64)
	At(x, y, z float64) (Data, bool)
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
}

// matrixStorage keeps points in insertion order in a slice, with a position
// index map for constant time lookup.
type matrixStorage struct {
	points   []PointAndData
	indexMap map[r3.Vector]uint
}

func (ms *matrixStorage) Size() int {
	return len(ms.points)
}

func (ms *matrixStorage) Set(p r3.Vector, d Data) error {
	if p.X > maxPreciseFloat64 || p.X < minPreciseFloat64 {
		return errors.Errorf("x component (%f) is out of range [%f,%f]", p.X, minPreciseFloat64, maxPreciseFloat64)
	}
	if p.Y > maxPreciseFloat64 || p.Y < minPreciseFloat64 {
		return errors.Errorf("y component (%f) is out of range [%f,%f]", p.Y, minPreciseFloat64, maxPreciseFloat64)
	}
	if p.Z > maxPreciseFloat64 || p.Z < minPreciseFloat64 {
		return errors.Errorf("z component (%f) is out of range [%f,%f]", p.Z, minPreciseFloat64, maxPreciseFloat64)
	}
	if i, ok := ms.indexMap[p]; ok {
		ms.points[i].D = d
		return nil
	}
	ms.points = append(ms.points, PointAndData{p, d})
	ms.indexMap[p] = uint(len(ms.points) - 1)
	return nil
}

func (ms *matrixStorage) Unset(x, y, z float64) {
	p := r3.Vector{X: x, Y: y, Z: z}
	i, ok := ms.indexMap[p]
	if !ok {
		return
	}
	last := uint(len(ms.points) - 1)
	if i != last {
		ms.points[i] = ms.points[last]
		ms.indexMap[ms.points[i].P] = i
	}
	ms.points = ms.points[:last]
	delete(ms.indexMap, p)
}

func (ms *matrixStorage) At(x, y, z float64) (Data, bool) {
	i, ok := ms.indexMap[r3.Vector{X: x, Y: y, Z: z}]
	if !ok {
		return nil, false
	}
	return ms.points[i].D, true
}

func (ms *matrixStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	if numBatches <= 0 {
		for _, pd := range ms.points {
			if !fn(pd.P, pd.D) {
				return
			}
		}
		return
	}
	batchSize := (len(ms.points) + numBatches - 1) / numBatches
	start := myBatch * batchSize
	end := start + batchSize
	if end > len(ms.points) {
		end = len(ms.points)
	}
	for i := start; i < end; i++ {
		if !fn(ms.points[i].P, ms.points[i].D) {
			return
		}
	}
}
