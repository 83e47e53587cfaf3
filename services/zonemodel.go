// ABOUTME: Das & Basu (2021) zone-based DAB design model: Zone I/II/V power,
// ABOUTME: Irms^2, ZVS masks, magnetics design, and analytical path samplers.

package services

import (
	"math"

	"github.com/dablab/dab-tps-analyzer/models"
)

// ZoneDesign is the transformer/inductor design derived from the target
// voltage-ratio design point m*.
type ZoneDesign struct {
	TurnsRatio  float64 `json:"n"`
	InductanceH float64 `json:"l_h"`
	PStar       float64 `json:"p_star"`
}

// PStar evaluates the polynomial fit for the design-point scaled power p*(m).
func PStar(m float64) float64 {
	return -1.9*m*m*m*m + 12.6*m*m*m - 30.9*m*m + 34.3*m - 14.07
}

// DesignMagnetics sizes the turns ratio and series inductance so the chosen
// m* lands at the worst-case (minimum) secondary voltage and the converter
// reaches maxPowerW there: n = m*·V1/V2min, L = p*(m*)·V1²/(2π·fs·Pmax).
func DesignMagnetics(v1, v2min, fs, maxPowerW, mStar float64) ZoneDesign {
	p := PStar(mStar)
	return ZoneDesign{
		TurnsRatio:  mStar * v1 / v2min,
		InductanceH: p * v1 * v1 / (2 * math.Pi * fs * maxPowerW),
		PStar:       p,
	}
}

// CriticalPowerLow returns pc1 (scaled): below it the optimal modulation path
// runs along the Zone I/II boundary.
func CriticalPowerLow(m float64) float64 {
	if m > 1 {
		return math.Pi * (m - 1) / (2 * m)
	}
	return math.Pi * m * m * (1 - m) / 2
}

// CriticalPowerHigh returns pc2 (scaled): above it the optimal path is
// plain SPS with both internal shifts saturated at 1.
func CriticalPowerHigh(m float64) float64 {
	if m > 1 {
		return m * math.Pi / 2 * (1 - m*m + m*math.Sqrt(m*m-1))
	}
	return (1 - m*m) * math.Pi / (2 * m) * (-1 + 1/math.Sqrt(1-m*m))
}

// ZoneModel evaluates the three ZVS design zones for one converter
// configuration. Duty components map as D0=delta (external shift), D1 and
// D2 the internal shifts; internal shifts may reach 1, unlike the six-mode
// model's half-normalized ratios.
//
// The ZVS masks use non-strict inequalities so that boundary points, where
// the optimal trajectory lives, stay included. Zone II is empty whenever
// m > 1: its second and third constraints would need m·delta to be both
// below d1(1-m) < 0 and above d1(m-1) > 0.
type ZoneModel struct {
	m        float64
	scaleP   float64 // watts per unit scaled power
	scaleI   float64 // amperes per unit scaled current
	maxPower float64 // scaled upper power bound for path samplers
}

// NewZoneModel builds the zone model; maxPowerW bounds the analytical path
// samplers (the theoretical ceiling m·π/4 applies regardless).
func NewZoneModel(p models.ConverterParameters, maxPowerW float64) *ZoneModel {
	p = p.WithDerived()
	zm := &ZoneModel{
		m:      p.Ratio(),
		scaleP: p.PowerScale(),
		scaleI: p.CurrentScale(),
	}
	zm.maxPower = zm.m * math.Pi / 4
	if maxPowerW > 0 {
		zm.maxPower = math.Min(zm.maxPower, maxPowerW/zm.scaleP)
	}
	return zm
}

// Ratio returns the reflected voltage ratio m the model was built with.
func (z *ZoneModel) Ratio() float64 { return z.m }

// PowerScale returns the watts-per-scaled-unit conversion factor.
func (z *ZoneModel) PowerScale() float64 { return z.scaleP }

// CurrentScale returns the amperes-per-scaled-unit conversion factor.
func (z *ZoneModel) CurrentScale() float64 { return z.scaleI }

// Modes returns the three design zones.
func (z *ZoneModel) Modes() []models.Mode {
	return []models.Mode{models.ZoneI, models.ZoneII, models.ZoneV}
}

// Feasible applies zone m's ZVS mask (boundary-inclusive).
func (z *ZoneModel) Feasible(mode models.Mode, d models.DutyPoint) bool {
	m, d0, d1, d2 := z.m, d.D0, d.D1, d.D2
	switch mode {
	case models.ZoneI:
		return d1-d2*m >= 0 &&
			d0-d2+d2*m >= 0 &&
			d2+d0-d2*m <= 0
	case models.ZoneII:
		return d1-d2*m <= 0 &&
			d1*m-d1+m*d0 <= 0 &&
			d1-d1*m+m*d0 >= 0
	case models.ZoneV:
		return d1-2*m+m*d0+m*d1 >= 0 &&
			d2+d0+m*d2-2 >= 0 &&
			d0-d2+d2*m >= 0 &&
			d1-d1*m+m*d0 >= 0
	default:
		return false
	}
}

// ScaledPower returns zone power in dimensionless units.
func (z *ZoneModel) ScaledPower(mode models.Mode, d models.DutyPoint) float64 {
	m, d0, d1, d2 := z.m, d.D0, d.D1, d.D2
	switch mode {
	case models.ZoneI:
		return 0.5 * m * math.Pi * d0 * d2
	case models.ZoneII:
		return 0.5 * m * math.Pi * d0 * d1
	case models.ZoneV:
		return 0.25 * m * math.Pi * (1 - (1-d1)*(1-d1) - (1-d2)*(1-d2) - (1-d0)*(1-d0))
	default:
		return 0
	}
}

// ScaledIrmsSquared returns zone Irms^2 in dimensionless units.
func (z *ZoneModel) ScaledIrmsSquared(mode models.Mode, d models.DutyPoint) float64 {
	m, d0, d1, d2 := z.m, d.D0, d.D1, d.D2
	c := math.Pi * math.Pi / 12
	switch mode {
	case models.ZoneI:
		return c * (-2*d1*d1*d1 +
			3*d1*d1*d2*m +
			3*d1*d1 -
			6*d1*d2*m -
			2*d2*d2*d2*m*m +
			d2*d2*d2*m +
			3*d2*d2*m*m +
			3*d2*d0*d0*m)
	case models.ZoneII:
		return c * (d1*d1*d1*m -
			2*d1*d1*d1 +
			3*d1*d1 +
			3*d1*d2*d2*m -
			6*d1*d2*m +
			3*d1*d0*d0*m -
			2*d2*d2*d2*m*m +
			3*d2*d2*m*m)
	case models.ZoneV:
		return c * (-2*d1*d1*d1 -
			3*d1*d1*d0*m +
			3*d1*d1*m +
			3*d1*d1 +
			6*d1*d0*m -
			6*d1*m -
			2*d2*d2*d2*m*m -
			3*d2*d2*d0*m +
			3*d2*d2*m*m +
			3*d2*d2*m +
			6*d2*d0*m -
			6*d2*m -
			d0*d0*d0*m +
			3*d0*d0*m -
			6*d0*m +
			4*m)
	default:
		return 0
	}
}

// Power returns zone power in watts.
func (z *ZoneModel) Power(mode models.Mode, d models.DutyPoint) float64 {
	return z.scaleP * z.ScaledPower(mode, d)
}

// IrmsSquared returns zone Irms^2 in A^2.
func (z *ZoneModel) IrmsSquared(mode models.Mode, d models.DutyPoint) float64 {
	return z.scaleI * z.scaleI * z.ScaledIrmsSquared(mode, d)
}

// SamplePaths emits candidates along the paper's analytical optimal
// modulation path plus two focused sweeps. Grid sweeps miss the
// zone-boundary trajectory at any finite resolution; these samplers close
// the gaps:
//
//	region 1 (p <= pc1): Zone I/II boundary, d1 = m·d2 (or d2 = d1/m for
//	m <= 1) with delta locked to the boundary relation
//	region 2 (pc1..pc2): d1 = 1 fine sweep inside Zone V
//	region 3 (p >= pc2): SPS with d1 = d2 = 1, delta from the quadratic
//
// Emitted points are raw candidates; the consumer re-validates masks,
// power range, and Irms^2 sign.
func (z *ZoneModel) SamplePaths(emit func(models.Mode, models.DutyPoint)) {
	z.sampleBoundaryPath(emit)
	z.sampleSaturatedSPS(emit)
	z.sampleInternalSweep(emit)
	z.sampleZoneVEntry(emit)
}

const pathSamplePoints = 1000

func (z *ZoneModel) sampleBoundaryPath(emit func(models.Mode, models.DutyPoint)) {
	m := z.m
	pMax := math.Min(CriticalPowerLow(m), z.maxPower)
	if pMax <= 0 {
		return
	}
	for i := 0; i < pathSamplePoints; i++ {
		p := 1e-6 + (pMax-1e-6)*float64(i)/float64(pathSamplePoints-1)
		var d0, d1, d2 float64
		if m > 1 {
			d2 = math.Sqrt(2 * p / (math.Pi * m * (m - 1)))
			d1 = m * d2
			d0 = (m - 1) * d2
		} else if m < 1 {
			d1 = math.Sqrt(2 * p / ((1 - m) * math.Pi))
			d2 = d1 / m
			d0 = (1 - m) * d2
		} else {
			return
		}
		if d1 <= 0 || d1 > 1 || d2 > 1 || d0 > 1 {
			continue
		}
		emit(models.ZoneI, models.DutyPoint{D0: d0, D1: d1, D2: d2})
	}
}

func (z *ZoneModel) sampleSaturatedSPS(emit func(models.Mode, models.DutyPoint)) {
	m := z.m
	pc2 := CriticalPowerHigh(m)
	if pc2 >= z.maxPower {
		return
	}
	for i := 0; i < pathSamplePoints; i++ {
		p := pc2 + 1e-6 + (z.maxPower-pc2-1e-6)*float64(i)/float64(pathSamplePoints-1)
		arg := 1 - 4*p/(m*math.Pi)
		if arg < 0 {
			continue
		}
		d0 := 1 - math.Sqrt(arg)
		emit(models.ZoneV, models.DutyPoint{D0: d0, D1: 1, D2: 1})
	}
}

// sampleInternalSweep is the fine d1=1 sweep covering the pc1..pc2 region,
// where the optimal path keeps d1 saturated while d2 and delta move inside
// Zone V.
func (z *ZoneModel) sampleInternalSweep(emit func(models.Mode, models.DutyPoint)) {
	const step = 0.005
	for d2 := step; d2 <= 1+1e-12; d2 += step {
		for d0 := step; d0 <= 1+1e-12; d0 += step {
			d := models.DutyPoint{D0: d0, D1: 1, D2: d2}
			if z.Feasible(models.ZoneV, d) {
				emit(models.ZoneV, d)
			}
		}
	}
}

// sampleZoneVEntry traces the minimum-power edge of Zone V at d1=1, closing
// the gap between the Zone I maximum at pc1 and the coarser grid's lowest
// Zone V points.
func (z *ZoneModel) sampleZoneVEntry(emit func(models.Mode, models.DutyPoint)) {
	const (
		edgePoints  = 500
		deltaLayers = 15
		deltaBand   = 0.03
	)
	m := z.m
	d2Lo := math.Max(1/m, 0.01)
	if d2Lo >= 1 {
		return
	}
	for i := 0; i < edgePoints; i++ {
		d2 := d2Lo + (1-d2Lo)*float64(i)/float64(edgePoints-1)
		// Minimum delta satisfying the Zone V constraints with d1 = 1.
		deltaMin := math.Max((m-1)/m, 2-(1+m)*d2)
		deltaMin = math.Max(deltaMin, 0.001)
		deltaHi := math.Min(deltaMin+deltaBand, 1)
		for j := 0; j < deltaLayers; j++ {
			d0 := deltaMin + (deltaHi-deltaMin)*float64(j)/float64(deltaLayers-1)
			d := models.DutyPoint{D0: d0, D1: 1, D2: d2}
			if z.Feasible(models.ZoneV, d) {
				emit(models.ZoneV, d)
			}
		}
	}
}
