package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

const (
	// Log-distance path-loss model: RSSI at 1 km and exponent.
	referencePowerDBm = -50.0
	pathLossExponent  = 2.0

	minTowerDistance = 50.0
	maxTowerDistance = 35000.0

	metersPerDegree = 111320.0

	trilaterationTowers      = 3
	maxTrilaterationAccuracy = 500.0
	minTrilaterationAccuracy = 1.0
	maxSolverIterations      = 200
	solverStepTolerance      = 1e-8
	solverCostTolerance      = 1e-10
	solverInitialDamping     = 1e-3
	solverMaxDamping         = 1e20
)

var (
	errSolverNonConvergence = errors.New("trilateration: solver did not converge")
	errTooFewTowerFixes     = errors.New("trilateration: fewer than 3 towers located")
)

// estimateDistance converts RSSI (dBm) into meters, clamped to
// [minTowerDistance, maxTowerDistance].
func estimateDistance(rssi float64) float64 {
	km := math.Pow(10, (referencePowerDBm-rssi)/(10*pathLossExponent))
	return math.Max(minTowerDistance, math.Min(km*1000, maxTowerDistance))
}

// project maps lat/lon onto a local plane in meters.
func project(lat, lon float64) (x, y float64) {
	return lon * metersPerDegree * math.Cos(toRad(lat)), lat * metersPerDegree
}

func unproject(x, y float64) (lat, lon float64) {
	lat = y / metersPerDegree
	return lat, x / (metersPerDegree * math.Cos(toRad(lat)))
}

type rangeCircle struct {
	x, y float64
	d    float64
}

type trilaterationFix struct {
	lat, lon float64
	accuracy float64
}

func (r *LocationResolver) trilaterate(ctx context.Context, towers []domain.CellTowerObservation) (trilaterationFix, error) {
	if len(towers) > trilaterationTowers {
		towers = towers[:trilaterationTowers]
	}

	circles := make([]rangeCircle, 0, len(towers))
	for _, t := range towers {
		pos, ok := r.locateTower(ctx, t)
		if !ok {
			continue
		}
		x, y := project(pos.Lat, pos.Lon)
		circles = append(circles, rangeCircle{x: x, y: y, d: estimateDistance(t.RSSI())})
	}
	if len(circles) < trilaterationTowers {
		return trilaterationFix{}, errTooFewTowerFixes
	}

	x, y, residual, err := solveRanges(circles, circles[0].x, circles[0].y)
	if err != nil {
		return trilaterationFix{}, err
	}

	lat, lon := unproject(x, y)
	if !validCoordinates(lat, lon) {
		return trilaterationFix{}, fmt.Errorf("%w: solution %.6f,%.6f out of range", errSolverNonConvergence, lat, lon)
	}
	return trilaterationFix{
		lat:      lat,
		lon:      lon,
		accuracy: math.Max(minTrilaterationAccuracy, math.Min(residual, maxTrilaterationAccuracy)),
	}, nil
}

// solveRanges finds the planar point whose distances to the circle centres
// best match their radii in the least-squares sense, using
// Levenberg-Marquardt started at (x, y). It returns the RMS residual at the
// solution.
func solveRanges(circles []rangeCircle, x, y float64) (float64, float64, float64, error) {
	res := make([]float64, len(circles))
	trial := make([]float64, len(circles))
	cost := rangeResiduals(circles, x, y, res)
	lambda := solverInitialDamping

	for iter := 0; iter < maxSolverIterations; iter++ {
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			return 0, 0, 0, errSolverNonConvergence
		}

		// Normal equations J^T J and gradient J^T r.
		var a11, a12, a22, g1, g2 float64
		for i, c := range circles {
			dx, dy := x-c.x, y-c.y
			rho := math.Hypot(dx, dy)
			if rho == 0 {
				continue
			}
			j1, j2 := dx/rho, dy/rho
			a11 += j1 * j1
			a12 += j1 * j2
			a22 += j2 * j2
			g1 += j1 * res[i]
			g2 += j2 * res[i]
		}
		if math.Hypot(g1, g2) == 0 {
			return x, y, rms(cost, len(circles)), nil
		}

		m11 := a11 + lambda*math.Max(a11, 1e-12)
		m22 := a22 + lambda*math.Max(a22, 1e-12)
		det := m11*m22 - a12*a12
		if det == 0 || math.IsNaN(det) {
			lambda *= 10
			if lambda > solverMaxDamping {
				return 0, 0, 0, errSolverNonConvergence
			}
			continue
		}
		stepX := (a12*g2 - m22*g1) / det
		stepY := (a12*g1 - m11*g2) / det

		if math.Hypot(stepX, stepY) <= solverStepTolerance*(math.Hypot(x, y)+solverStepTolerance) {
			return x, y, rms(cost, len(circles)), nil
		}

		nx, ny := x+stepX, y+stepY
		newCost := rangeResiduals(circles, nx, ny, trial)
		if newCost < cost {
			improvement := cost - newCost
			prev := cost
			x, y, cost = nx, ny, newCost
			res, trial = trial, res
			lambda = math.Max(lambda/10, 1e-12)
			if improvement <= solverCostTolerance*prev {
				return x, y, rms(cost, len(circles)), nil
			}
			continue
		}

		lambda *= 10
		if lambda > solverMaxDamping {
			return 0, 0, 0, errSolverNonConvergence
		}
	}
	return 0, 0, 0, errSolverNonConvergence
}

func rangeResiduals(circles []rangeCircle, x, y float64, out []float64) float64 {
	var cost float64
	for i, c := range circles {
		r := math.Hypot(x-c.x, y-c.y) - c.d
		out[i] = r
		cost += r * r
	}
	return cost
}

func rms(cost float64, n int) float64 {
	return math.Sqrt(cost / float64(n))
}
