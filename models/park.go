package models

// ParkFactors represents how a ballpark shifts outcome rates
// (100 = neutral, >100 = favors offense, <100 = favors pitchers)
type ParkFactors struct {
	HitsFactor    float64 `json:"hits_factor" yaml:"hits_factor"` // singles
	DoublesFactor float64 `json:"doubles_factor" yaml:"doubles_factor"`
	TriplesFactor float64 `json:"triples_factor" yaml:"triples_factor"`
	HRFactor      float64 `json:"hr_factor" yaml:"hr_factor"`
	WalkFactor    float64 `json:"walk_factor" yaml:"walk_factor"`
}

// GetParkFactorMultiplier returns the weight multiplier for an outcome.
// Unset (zero) factors are treated as neutral.
func (pf *ParkFactors) GetParkFactorMultiplier(outcome Outcome) float64 {
	var factor float64
	switch outcome {
	case Single:
		factor = pf.HitsFactor
	case Double:
		factor = pf.DoublesFactor
	case Triple:
		factor = pf.TriplesFactor
	case HomeRun:
		factor = pf.HRFactor
	case Walk:
		factor = pf.WalkFactor
	default:
		return 1.0
	}
	if factor <= 0 {
		return 1.0
	}
	return factor / 100.0
}

// IsNeutral reports whether every multiplier is exactly 1.0
func (pf *ParkFactors) IsNeutral() bool {
	for _, o := range Outcomes() {
		if pf.GetParkFactorMultiplier(o) != 1.0 {
			return false
		}
	}
	return true
}

// IsHittersFriendly returns true if the park significantly favors hitters
func (pf *ParkFactors) IsHittersFriendly() bool {
	return pf.GetParkFactorMultiplier(Single) >= 1.05 && pf.GetParkFactorMultiplier(HomeRun) >= 1.05
}

// IsPitchersFriendly returns true if the park significantly favors pitchers
func (pf *ParkFactors) IsPitchersFriendly() bool {
	return pf.GetParkFactorMultiplier(Single) <= 0.95 && pf.GetParkFactorMultiplier(HomeRun) <= 0.95
}

// WithAltitude folds the home run boost from altitude into HRFactor.
// High altitude parks like Coors Field (5280 ft) see roughly a 9% boost.
func (pf ParkFactors) WithAltitude(altitude int) ParkFactors {
	pf.HRFactor = pf.GetParkFactorMultiplier(HomeRun) * GetAltitudeEffect(altitude) * 100.0
	return pf
}

// apply scales each outcome weight and renormalises so the result sums to 1.
// Outs keep their raw weight and absorb the difference.
func (pf *ParkFactors) apply(d Distribution) Distribution {
	var scaled Distribution
	total := 0.0
	for _, o := range Outcomes() {
		scaled[o] = d[o] * pf.GetParkFactorMultiplier(o)
		total += scaled[o]
	}
	if total <= 0 {
		return d
	}
	for i := range scaled {
		scaled[i] /= total
	}
	return scaled
}

// GetAltitudeEffect returns the home run multiplier from altitude
func GetAltitudeEffect(altitude int) float64 {
	if altitude <= 1000 {
		return 1.0 // No effect at sea level or low elevation
	}

	// ~2% per 1000 feet above 1000 feet, capped at 20%
	boost := float64(altitude-1000) / 1000.0 * 0.02
	if boost > 0.20 {
		boost = 0.20
	}

	return 1.0 + boost
}

// DefaultParkFactors returns neutral park factors
func DefaultParkFactors() ParkFactors {
	return ParkFactors{
		HitsFactor:    100.0,
		DoublesFactor: 100.0,
		TriplesFactor: 100.0,
		HRFactor:      100.0,
		WalkFactor:    100.0,
	}
}
