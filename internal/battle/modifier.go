package battle

// Stat is a value read through the modifier pipeline.
type Stat int

const (
	StatDamageDealt Stat = iota
	StatDamageTaken
	StatShieldGained
)

func (s Stat) String() string {
	switch s {
	case StatDamageDealt:
		return "damage-dealt"
	case StatDamageTaken:
		return "damage-taken"
	case StatShieldGained:
		return "shield-gained"
	default:
		return "unknown"
	}
}

// ModContext is what a modifier sees at the read site.
type ModContext struct {
	Stat   Stat
	Source *Combatant
	Target *Combatant
}

// Modifier is one pure step of the pipeline.
type Modifier struct {
	Name  string
	Stat  Stat
	Apply func(base int, mc ModContext) int
}

// Flat returns a modifier adding amount.
func Flat(name string, stat Stat, amount int) Modifier {
	return Modifier{Name: name, Stat: stat, Apply: func(base int, _ ModContext) int { return base + amount }}
}

// Scaled returns a modifier multiplying by num/den, rounding down.
func Scaled(name string, stat Stat, num, den int) Modifier {
	return Modifier{Name: name, Stat: stat, Apply: func(base int, _ ModContext) int { return base * num / den }}
}

// Pipeline returns c's modifiers for stat: status-derived ones first (flat
// before scaling), then explicit ones in insertion order.
func Pipeline(c *Combatant, stat Stat) []Modifier {
	if c == nil {
		return nil
	}
	var mods []Modifier
	switch stat {
	case StatDamageDealt:
		if n := c.Stacks(StatusStrength); n != 0 {
			mods = append(mods, Flat(StatusStrength, stat, n))
		}
		if c.Stacks(StatusWeak) > 0 {
			mods = append(mods, Scaled(StatusWeak, stat, 3, 4))
		}
	case StatDamageTaken:
		if c.Stacks(StatusVulnerable) > 0 {
			mods = append(mods, Scaled(StatusVulnerable, stat, 3, 2))
		}
	case StatShieldGained:
		if n := c.Stacks(StatusDexterity); n != 0 {
			mods = append(mods, Flat(StatusDexterity, stat, n))
		}
		if c.Stacks(StatusFrail) > 0 {
			mods = append(mods, Scaled(StatusFrail, stat, 3, 4))
		}
	}
	for _, m := range c.Modifiers {
		if m.Stat == stat && m.Apply != nil {
			mods = append(mods, m)
		}
	}
	return mods
}

// Apply runs base through mods in order. The result never drops below zero.
func Apply(base int, mods []Modifier, mc ModContext) int {
	v := base
	for _, m := range mods {
		v = m.Apply(v, mc)
	}
	if v < 0 {
		v = 0
	}
	return v
}

// DamageAmount is base damage after the source's outgoing and the target's
// incoming modifiers.
func DamageAmount(base int, source, target *Combatant) int {
	mc := ModContext{Stat: StatDamageDealt, Source: source, Target: target}
	v := Apply(base, Pipeline(source, StatDamageDealt), mc)
	mc.Stat = StatDamageTaken
	return Apply(v, Pipeline(target, StatDamageTaken), mc)
}

// ShieldAmount is base shield after the receiver's modifiers.
func ShieldAmount(base int, c *Combatant) int {
	mc := ModContext{Stat: StatShieldGained, Source: c, Target: c}
	return Apply(base, Pipeline(c, StatShieldGained), mc)
}
