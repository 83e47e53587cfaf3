// ABOUTME: Converter parameter record shared by all analytical computations.
// ABOUTME: Immutable for the duration of one sweep; validated before use.

package models

import (
	"fmt"
	"math"
)

// ConverterParameters describes one fixed DAB converter configuration.
// HalfPeriodS is the half switching period T; SwitchingHz is the full
// switching frequency and is kept for zone-model scaling, which works in
// angular-frequency terms.
type ConverterParameters struct {
	PrimaryV     float64 `json:"primary_v"`
	SecondaryV   float64 `json:"secondary_v"`
	HalfPeriodS  float64 `json:"half_period_s"`
	SwitchingHz  float64 `json:"switching_hz"`
	InductanceH  float64 `json:"inductance_h"`
	TurnsRatio   float64 `json:"turns_ratio"`
	ESRPrimary   float64 `json:"esr_primary_ohm,omitempty"`
	ESRSecondary float64 `json:"esr_secondary_ohm,omitempty"`
}

// Ratio returns the reflected voltage ratio m = n*V2/V1.
func (p ConverterParameters) Ratio() float64 {
	n := p.TurnsRatio
	if n == 0 {
		n = 1
	}
	return n * p.SecondaryV / p.PrimaryV
}

// PowerScale converts the zone model's dimensionless power to watts:
// P = V1^2 / (2*pi*fs*L) * p.
func (p ConverterParameters) PowerScale() float64 {
	return p.PrimaryV * p.PrimaryV / (2 * math.Pi * p.SwitchingHz * p.InductanceH)
}

// CurrentScale converts the zone model's dimensionless RMS current to amperes.
func (p ConverterParameters) CurrentScale() float64 {
	return p.PrimaryV / (2 * math.Pi * p.SwitchingHz * p.InductanceH)
}

// Validate rejects configurations that would invalidate an entire sweep.
func (p ConverterParameters) Validate() error {
	if p.PrimaryV <= 0 {
		return fmt.Errorf("primary voltage must be positive, got %g", p.PrimaryV)
	}
	if p.SecondaryV <= 0 {
		return fmt.Errorf("secondary voltage must be positive, got %g", p.SecondaryV)
	}
	if p.InductanceH <= 0 {
		return fmt.Errorf("inductance must be positive, got %g", p.InductanceH)
	}
	if p.HalfPeriodS <= 0 && p.SwitchingHz <= 0 {
		return fmt.Errorf("either half period or switching frequency must be set")
	}
	if p.TurnsRatio < 0 {
		return fmt.Errorf("turns ratio must be non-negative, got %g", p.TurnsRatio)
	}
	return nil
}

// WithDerived fills whichever of HalfPeriodS / SwitchingHz is unset from the
// other (T = 1/(2*fs)).
func (p ConverterParameters) WithDerived() ConverterParameters {
	if p.HalfPeriodS == 0 && p.SwitchingHz > 0 {
		p.HalfPeriodS = 1 / (2 * p.SwitchingHz)
	}
	if p.SwitchingHz == 0 && p.HalfPeriodS > 0 {
		p.SwitchingHz = 1 / (2 * p.HalfPeriodS)
	}
	if p.TurnsRatio == 0 {
		p.TurnsRatio = 1
	}
	return p
}
