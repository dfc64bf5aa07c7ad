package raster

import "fmt"

// NoBand marks a role that no band fills.
const NoBand = -1

// Roles maps the display channels onto band indices.
type Roles struct {
	Red, Green, Blue, Alpha int
}

func (r Roles) String() string {
	return fmt.Sprintf("red=%v green=%v blue=%v alpha=%v", r.Red, r.Green, r.Blue, r.Alpha)
}

type roleRule struct {
	interp ColorInterp
	assign func(r *Roles, band int)
}

// roleRules are checked in order for each band. The first rule whose
// interpretation matches is applied. Bands are visited in order, so a
// later band overwrites an earlier band's claim on the same role.
var roleRules = []roleRule{
	{Red, func(r *Roles, band int) { r.Red = band }},
	{Green, func(r *Roles, band int) { r.Green = band }},
	{Blue, func(r *Roles, band int) { r.Blue = band }},
	{Alpha, func(r *Roles, band int) { r.Alpha = band }},
	{Undefined, guessRole},
}

// guessRole assigns a band with no declared interpretation by its
// position.
func guessRole(r *Roles, band int) {
	switch band {
	case 0:
		r.Red = band
	case 1:
		r.Green = band
	case 2:
		r.Blue = band
	case 3:
		r.Alpha = band
	}
}

// AssignRoles works out which band fills which channel from the bands'
// declared interpretations. A single band is treated as monochrome and
// fills red, green and blue regardless of its interpretation.
func AssignRoles(interps []ColorInterp) Roles {
	roles := Roles{Red: NoBand, Green: NoBand, Blue: NoBand, Alpha: NoBand}
	if len(interps) == 1 {
		roles.Red, roles.Green, roles.Blue = 0, 0, 0
		return roles
	}

	for band, interp := range interps {
		for _, rule := range roleRules {
			if rule.interp == interp {
				rule.assign(&roles, band)
				break
			}
		}
	}
	return roles
}
