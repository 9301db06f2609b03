// Package taxonomy maps free-text video titles and descriptions onto the
// known BJJ technique catalog used by the evaluator's scoring dimensions.
package taxonomy

import "strings"

// Technique is one entry of the known-technique catalog.
type Technique struct {
	Name     string
	Aliases  []string
	Position string
	// Belt is the rank the technique is usually taught at; broad beginner
	// material reaches a wider audience than advanced systems.
	Belt string
}

// MatchKind describes how strongly a candidate text mapped to the catalog.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchPosition
	MatchAlias
	MatchExact
)

// Catalog resolves technique names, aliases, and position words.
type Catalog struct {
	techniques []Technique
	byName     map[string]int
	positions  []string
}

// NewCatalog builds a catalog from the built-in techniques plus any extras
// supplied through configuration. Extras with a name already present extend
// that entry's aliases instead of duplicating it.
func NewCatalog(extra []Technique) *Catalog {
	c := &Catalog{byName: map[string]int{}}
	for _, t := range defaultTechniques() {
		c.add(t)
	}
	for _, t := range extra {
		c.add(t)
	}
	seen := map[string]struct{}{}
	for _, t := range c.techniques {
		p := strings.ToLower(t.Position)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		c.positions = append(c.positions, p)
	}
	return c
}

func (c *Catalog) add(t Technique) {
	key := strings.ToLower(t.Name)
	if idx, ok := c.byName[key]; ok {
		c.techniques[idx].Aliases = append(c.techniques[idx].Aliases, t.Aliases...)
		return
	}
	c.byName[key] = len(c.techniques)
	c.techniques = append(c.techniques, t)
}

// Lookup returns the technique with the given name, or nil.
func (c *Catalog) Lookup(name string) *Technique {
	if idx, ok := c.byName[strings.ToLower(name)]; ok {
		return &c.techniques[idx]
	}
	return nil
}

// Match scans title and description for a known technique. Exact names beat
// aliases, aliases beat a bare position word. Among exact matches the longer
// name wins so "triangle choke from closed guard" resolves to the choke, not
// the guard.
func (c *Catalog) Match(title, description string) (*Technique, MatchKind) {
	text := strings.ToLower(title + " " + description)

	var best *Technique
	bestKind := MatchNone
	bestLen := 0

	for i := range c.techniques {
		t := &c.techniques[i]
		if name := strings.ToLower(t.Name); strings.Contains(text, name) {
			if bestKind < MatchExact || len(name) > bestLen {
				best, bestKind, bestLen = t, MatchExact, len(name)
			}
			continue
		}
		if bestKind >= MatchExact {
			continue
		}
		for _, alias := range t.Aliases {
			a := strings.ToLower(alias)
			if !strings.Contains(text, a) {
				continue
			}
			if bestKind < MatchAlias || (bestKind == MatchAlias && len(a) > bestLen) {
				best, bestKind, bestLen = t, MatchAlias, len(a)
			}
		}
	}
	if best != nil {
		return best, bestKind
	}

	for _, p := range c.positions {
		if strings.Contains(text, p) {
			return nil, MatchPosition
		}
	}
	return nil, MatchNone
}

// Size returns how many techniques the catalog knows.
func (c *Catalog) Size() int {
	return len(c.techniques)
}

func defaultTechniques() []Technique {
	return []Technique{
		{Name: "armbar", Aliases: []string{"juji gatame", "arm bar", "straight armlock"}, Position: "guard", Belt: "white"},
		{Name: "triangle choke", Aliases: []string{"triangle", "sankaku"}, Position: "guard", Belt: "white"},
		{Name: "rear naked choke", Aliases: []string{"rnc", "mata leao"}, Position: "back", Belt: "white"},
		{Name: "guillotine", Aliases: []string{"guillotine choke", "high elbow guillotine"}, Position: "guard", Belt: "white"},
		{Name: "kimura", Aliases: []string{"double wristlock"}, Position: "side control", Belt: "white"},
		{Name: "americana", Aliases: []string{"keylock", "figure four armlock"}, Position: "side control", Belt: "white"},
		{Name: "cross collar choke", Aliases: []string{"collar choke", "x choke"}, Position: "guard", Belt: "white"},
		{Name: "scissor sweep", Aliases: []string{}, Position: "guard", Belt: "white"},
		{Name: "hip bump sweep", Aliases: []string{"hip bump"}, Position: "guard", Belt: "white"},
		{Name: "closed guard", Aliases: []string{"full guard"}, Position: "guard", Belt: "white"},
		{Name: "half guard", Aliases: []string{"half-guard", "z guard"}, Position: "guard", Belt: "blue"},
		{Name: "butterfly sweep", Aliases: []string{"butterfly guard sweep"}, Position: "guard", Belt: "blue"},
		{Name: "ezekiel choke", Aliases: []string{"ezekiel", "sode guruma"}, Position: "mount", Belt: "blue"},
		{Name: "bow and arrow choke", Aliases: []string{"bow & arrow"}, Position: "back", Belt: "blue"},
		{Name: "knee cut pass", Aliases: []string{"knee slice", "knee slide pass"}, Position: "passing", Belt: "blue"},
		{Name: "toreando pass", Aliases: []string{"bullfighter pass", "toreada"}, Position: "passing", Belt: "blue"},
		{Name: "arm triangle", Aliases: []string{"kata gatame", "head and arm choke"}, Position: "mount", Belt: "blue"},
		{Name: "darce choke", Aliases: []string{"d'arce", "brabo choke"}, Position: "front headlock", Belt: "purple"},
		{Name: "anaconda choke", Aliases: []string{"anaconda"}, Position: "front headlock", Belt: "purple"},
		{Name: "omoplata", Aliases: []string{"shoulder lock from guard"}, Position: "guard", Belt: "purple"},
		{Name: "de la riva guard", Aliases: []string{"dlr", "de la riva"}, Position: "guard", Belt: "purple"},
		{Name: "x guard", Aliases: []string{"x-guard", "single leg x"}, Position: "guard", Belt: "purple"},
		{Name: "leg drag pass", Aliases: []string{"leg drag"}, Position: "passing", Belt: "purple"},
		{Name: "berimbolo", Aliases: []string{"bolo"}, Position: "guard", Belt: "purple"},
		{Name: "crab ride", Aliases: []string{}, Position: "back", Belt: "purple"},
		{Name: "kiss of the dragon", Aliases: []string{"reverse de la riva inversion"}, Position: "guard", Belt: "brown"},
		{Name: "heel hook", Aliases: []string{"inside heel hook", "outside heel hook"}, Position: "leg entanglement", Belt: "brown"},
		{Name: "kneebar", Aliases: []string{"knee bar"}, Position: "leg entanglement", Belt: "brown"},
		{Name: "toe hold", Aliases: []string{"toehold"}, Position: "leg entanglement", Belt: "brown"},
		{Name: "saddle entry", Aliases: []string{"inside sankaku", "411", "honey hole"}, Position: "leg entanglement", Belt: "brown"},
		{Name: "matrix back take", Aliases: []string{"matrix"}, Position: "back", Belt: "black"},
		{Name: "buggy choke", Aliases: []string{}, Position: "bottom side control", Belt: "black"},
	}
}
