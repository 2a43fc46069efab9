package checkout

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

const externalIDPrefix = "praxis-monthly-"

var (
	hundred = big.NewRat(100, 1)
	half    = big.NewRat(1, 2)
)

// ToMinorUnits converts a decimal amount to integer cents, rounding half away from zero.
// Rounding works on the shortest decimal form of the float, so 9.905 becomes 991
// even though its binary value is slightly below 9.905.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount %v is not finite", amount)
	}

	r, ok := new(big.Rat).SetString(strconv.FormatFloat(amount, 'f', -1, 64))
	if !ok {
		return 0, fmt.Errorf("amount %v is not a decimal", amount)
	}
	r.Mul(r, hundred)
	if r.Sign() >= 0 {
		r.Add(r, half)
	} else {
		r.Sub(r, half)
	}

	cents := new(big.Int).Quo(r.Num(), r.Denom())
	if !cents.IsInt64() {
		return 0, fmt.Errorf("amount %v out of range", amount)
	}
	return cents.Int64(), nil
}

// ExternalID is the provider product id for a user's monthly plan.
func ExternalID(userID string) string {
	return externalIDPrefix + userID
}
