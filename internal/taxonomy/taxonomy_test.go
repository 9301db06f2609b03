package taxonomy

import "testing"

func TestMatchExactBeatsAlias(t *testing.T) {
	t.Parallel()

	c := NewCatalog(nil)

	tech, kind := c.Match("Perfecting The Triangle Choke From Closed Guard", "")
	if kind != MatchExact {
		t.Fatalf("expected exact match, got %v", kind)
	}
	if tech.Name != "triangle choke" {
		t.Fatalf("expected triangle choke, got %s", tech.Name)
	}
}

func TestMatchAlias(t *testing.T) {
	t.Parallel()

	c := NewCatalog(nil)

	tech, kind := c.Match("Finishing the RNC against strong hand fighting", "")
	if kind != MatchAlias {
		t.Fatalf("expected alias match, got %v", kind)
	}
	if tech.Name != "rear naked choke" {
		t.Fatalf("expected rear naked choke, got %s", tech.Name)
	}
}

func TestMatchPositionOnly(t *testing.T) {
	t.Parallel()

	c := NewCatalog(nil)

	tech, kind := c.Match("Five concepts for playing guard", "general guard retention ideas")
	if kind != MatchPosition {
		t.Fatalf("expected position match, got %v", kind)
	}
	if tech != nil {
		t.Fatalf("position match must not resolve a technique, got %s", tech.Name)
	}
}

func TestMatchNone(t *testing.T) {
	t.Parallel()

	c := NewCatalog(nil)

	if tech, kind := c.Match("My trip to the beach", "vlog"); kind != MatchNone || tech != nil {
		t.Fatalf("expected no match, got %v / %v", kind, tech)
	}
}

func TestConfigExtensionMergesAliases(t *testing.T) {
	t.Parallel()

	c := NewCatalog([]Technique{
		{Name: "armbar", Aliases: []string{"armlock from mount"}},
		{Name: "worm guard", Aliases: []string{"lapel guard"}, Position: "guard", Belt: "black"},
	})

	if tech, kind := c.Match("Armlock from mount fundamentals", ""); kind != MatchAlias || tech.Name != "armbar" {
		t.Fatalf("merged alias did not resolve: %v %v", tech, kind)
	}
	if tech := c.Lookup("worm guard"); tech == nil || tech.Belt != "black" {
		t.Fatalf("extra technique not added: %v", tech)
	}
}
