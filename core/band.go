package core

// Band is the discrete visual state a renderer maps to a colour.
type Band int

const (
	// BandActive is an entity firing this tick.
	BandActive Band = iota
	// BandRecent covers the first three ticks after firing.
	BandRecent
	// BandFading covers ticks three and four after firing.
	BandFading
	// BandDim covers ticks five to seven after firing.
	BandDim
	// BandDormant is everything older.
	BandDormant
)

// NumBands is the number of distinct bands.
const NumBands = 5

// GlowSuppressAfter is the age (in ticks) at which an entity stops
// contributing to the emissive glow pass.
const GlowSuppressAfter = 8

var bandNames = [NumBands]string{"active", "recent", "fading", "dim", "dormant"}

func (b Band) String() string {
	if b < 0 || int(b) >= NumBands {
		return "unknown"
	}
	return bandNames[b]
}

// bandFor maps an activity flag and a tick age onto a band.
func bandFor(active bool, age int) Band {
	switch {
	case active:
		return BandActive
	case age < 3:
		return BandRecent
	case age < 5:
		return BandFading
	case age < GlowSuppressAfter:
		return BandDim
	default:
		return BandDormant
	}
}
