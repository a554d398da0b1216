package xcb

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

/*
Denominations of the native currency. Each value is the power of ten that
converts the unit into ore, the smallest indivisible unit.
*/
type Unit uint

const (
	Ore   Unit = 0
	Wav   Unit = 3
	Grav  Unit = 6
	Nucle Unit = 9
	Atom  Unit = 12
	Moli  Unit = 15
	Core  Unit = 18
)

var unitNames = map[string]Unit{
	"ore":   Ore,
	"wav":   Wav,
	"femto": Wav,
	"grav":  Grav,
	"pico":  Grav,
	"nucle": Nucle,
	"nano":  Nucle,
	"atom":  Atom,
	"micro": Atom,
	"moli":  Moli,
	"milli": Moli,
	"core":  Core,
	"xcb":   Core,
}

// Resolves a unit by name or alias, case-insensitively.
func ParseUnit(name string) (Unit, error) {
	unit, ok := unitNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Errorf("unknown unit %q", name)
	}
	return unit, nil
}

// Number of ore in one unit.
func (self Unit) Multiplier() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(self)), nil)
}

func (self Unit) String() string {
	switch self {
	case Ore:
		return "ore"
	case Wav:
		return "wav"
	case Grav:
		return "grav"
	case Nucle:
		return "nucle"
	case Atom:
		return "atom"
	case Moli:
		return "moli"
	case Core:
		return "core"
	}
	return "unit(" + big.NewInt(int64(self)).String() + ")"
}

/*
Converts a decimal amount such as "1.5" in the given unit into ore. Fractional
digits beyond the unit's precision are rejected rather than rounded.
*/
func ParseUnits(amount string, unit Unit) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.New("empty amount")
	}
	if amount[0] == '-' {
		return nil, errors.Errorf("negative amount %q", amount)
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if len(frac) > int(unit) {
		return nil, errors.Errorf("amount %q has more than %d decimals", amount, unit)
	}
	digits := whole + frac + strings.Repeat("0", int(unit)-len(frac))
	if digits == "" {
		return nil, errors.Errorf("malformed amount %q", amount)
	}

	out, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, errors.Errorf("malformed amount %q", amount)
	}
	return out, nil
}

// Parses an amount with an optional unit suffix such as "1.5 core"; bare
// numbers are in ore.
func ParseAmount(input string) (*big.Int, error) {
	fields := strings.Fields(input)
	switch len(fields) {
	case 1:
		return ParseUnits(fields[0], Ore)
	case 2:
		unit, err := ParseUnit(fields[1])
		if err != nil {
			return nil, err
		}
		return ParseUnits(fields[0], unit)
	}
	return nil, errors.Errorf("malformed amount %q", input)
}

// Formats an amount of ore in the given unit, trimming trailing zeros.
func FormatUnits(ore *big.Int, unit Unit) string {
	if ore == nil {
		return "0"
	}
	neg := ore.Sign() < 0
	digits := new(big.Int).Abs(ore).String()

	places := int(unit)
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-places]
	frac := strings.TrimRight(digits[len(digits)-places:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

var coreBig = new(big.Float).SetInt(Core.Multiplier())

/*
Converts cores to ore. Truncates leftover fractional digits. Beware: floats
should not be used for financial calculations. Conversion functions are
provided only for display purposes and for handling user input.
*/
func CoreToOre(core float64) *big.Int {
	num := big.NewFloat(core)
	num.Mul(num, coreBig)
	out, _ := num.Int(nil)
	return out
}

/*
Converts ore to cores. Beware: floats should not be used for financial
calculations.
*/
func OreToCore(ore *big.Int) float64 {
	num := new(big.Float).SetInt(ore)
	num.Quo(num, coreBig)
	out, _ := num.Float64()
	return out
}
