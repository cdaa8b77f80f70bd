package station

// LandMass identifies a region that cannot be reached by road from the others.
type LandMass string

const (
	LandMassMainland         LandMass = "mainland"
	LandMassBalearic         LandMass = "balearic"
	LandMassCanary           LandMass = "canary"
	LandMassAutonomousCities LandMass = "autonomous-cities"
	LandMassCorsica          LandMass = "corsica"
)

// LandMassFunc classifies a coordinate.
type LandMassFunc func(lat, lng float64) LandMass

// SpainLandMass classifies Spanish coordinates. Ceuta and Melilla sit south
// of the peninsula, the Balearic Islands east of its southern half.
func SpainLandMass(lat, lng float64) LandMass {
	switch {
	case lat < 30.0:
		return LandMassCanary
	case lat < 36.0:
		return LandMassAutonomousCities
	case lat < 40.266255 && lng > 1.0069915:
		return LandMassBalearic
	default:
		return LandMassMainland
	}
}

// FranceLandMass classifies French coordinates.
func FranceLandMass(lat, lng float64) LandMass {
	if lat >= 41.3 && lat <= 43.1 && lng >= 8.5 && lng <= 9.5 {
		return LandMassCorsica
	}
	return LandMassMainland
}
