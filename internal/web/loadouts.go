package web

import (
	"github.com/peterkuimelis/clash/internal/battle"
)

// LoadoutInfo is the JSON representation of a loadout for the /api/loadouts
// endpoint.
type LoadoutInfo struct {
	Number  int      `json:"number"`
	Name    string   `json:"name"`
	Hero    string   `json:"hero"`
	Health  int      `json:"health"`
	Enemies []string `json:"enemies"`
	Cards   []string `json:"cards"`
}

func describeLoadout(number int, l battle.Loadout) LoadoutInfo {
	info := LoadoutInfo{
		Number: number,
		Name:   l.Name,
		Hero:   l.Hero.Name,
		Health: l.Hero.Health,
	}
	for _, e := range l.Enemies {
		info.Enemies = append(info.Enemies, e.Name)
	}
	// Unique skill names for display
	seen := make(map[string]bool)
	for _, c := range l.Cards {
		if !seen[c.Skill] {
			info.Cards = append(info.Cards, c.Skill)
			seen[c.Skill] = true
		}
	}
	return info
}
