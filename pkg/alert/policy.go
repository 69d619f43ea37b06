package alert

// BGR is an OpenCV-order color.
type BGR [3]uint8

// Common HUD colors.
var (
	Green  = BGR{0, 255, 0}
	Yellow = BGR{0, 255, 255}
	Red    = BGR{0, 0, 255}
	Blue   = BGR{255, 0, 0}
)

// Style is how one level is presented: HUD color and whether the alarm sounds.
type Style struct {
	Color BGR  `yaml:"color" json:"color"`
	Sound bool `yaml:"sound" json:"sound"`
}

// Policy maps each level to its presentation. Levels missing from the table
// are drawn green and never sound.
type Policy map[Level]Style

// DefaultPolicy sounds the alarm only on Danger.
func DefaultPolicy() Policy {
	return Policy{
		Normal:  {Color: Green, Sound: false},
		Warning: {Color: Yellow, Sound: false},
		Danger:  {Color: Red, Sound: true},
	}
}

// ShouldSound reports whether the alarm plays at level l.
func (p Policy) ShouldSound(l Level) bool {
	return p[l].Sound
}

// Color returns the HUD color for level l.
func (p Policy) Color(l Level) BGR {
	s, ok := p[l]
	if !ok {
		return Green
	}
	return s.Color
}

// Merge returns a copy of p with the entries of overrides replacing p's.
func (p Policy) Merge(overrides Policy) Policy {
	out := make(Policy, len(p)+len(overrides))
	for l, s := range p {
		out[l] = s
	}
	for l, s := range overrides {
		out[l] = s
	}
	return out
}
