// Package chem parses human-entered chemical formulas into fixed-length
// composition vectors over the element vocabulary used as model features.
//
// Parsing is best effort. Solid-solution blends ("0.5BaTiO3-0.5SrTiO3",
// "0.5BaTiO3.0.5SrTiO3"), leading coefficients, "*" multipliers, nested
// groups and decimal subscripts are understood; any term that cannot be read
// contributes nothing and parsing continues with the next one. Elements
// outside the vocabulary are dropped.
//
//	c := chem.Parse("0.94(Bi0.5Na0.5)TiO3-0.06BaTiO3")
//	if c.IsZero() {
//	    // no recognized composition
//	}
//	ti := c.Get("Ti")
package chem
