// Package points holds the pure arithmetic of the loyalty program: points
// earned per purchase and discount value per redemption. No I/O, no clock.
package points

import (
	"fmt"
	"math"
)

// EarnCalculation is the outcome of an earn computation. An invalid purchase
// amount is a reported outcome, not an error: Valid is false, Points is zero
// and Calculation explains why.
type EarnCalculation struct {
	Points      int
	Valid       bool
	Calculation string
}

// RedemptionCalculation is the outcome of a redemption computation. Points
// are only ever consumed in whole redemption units; whatever does not fit a
// unit is returned in Remainder and stays with the user.
type RedemptionCalculation struct {
	PointsConsumed int
	DiscountValue  float64
	Remainder      int
	Calculation    string
}

// CalculateEarnedPoints returns the points earned for a purchase amount at
// the program rate. Fractional points are never awarded: the product is
// floored.
func CalculateEarnedPoints(amount, pointsPerDollar float64) EarnCalculation {
	if amount <= 0 {
		return EarnCalculation{
			Points:      0,
			Valid:       false,
			Calculation: fmt.Sprintf("invalid purchase amount %.2f: no points earned", amount),
		}
	}
	earned := int(math.Floor(amount * pointsPerDollar))
	return EarnCalculation{
		Points:      earned,
		Valid:       true,
		Calculation: fmt.Sprintf("floor(%.2f x %g pts/$) = %d points", amount, pointsPerDollar, earned),
	}
}

// CalculateRedemptionValue converts requested points into whole redemption
// units of minimumRedemption points worth redemptionValue each. Requests
// below the minimum consume nothing and return the full request as remainder.
func CalculateRedemptionValue(pointsRequested, minimumRedemption int, redemptionValue float64) RedemptionCalculation {
	if minimumRedemption <= 0 || pointsRequested < minimumRedemption {
		return RedemptionCalculation{
			PointsConsumed: 0,
			DiscountValue:  0,
			Remainder:      pointsRequested,
			Calculation: fmt.Sprintf("%d points below %d point minimum: nothing redeemed",
				pointsRequested, minimumRedemption),
		}
	}
	units := pointsRequested / minimumRedemption
	consumed := units * minimumRedemption
	discount := float64(units) * redemptionValue
	return RedemptionCalculation{
		PointsConsumed: consumed,
		DiscountValue:  discount,
		Remainder:      pointsRequested - consumed,
		Calculation: fmt.Sprintf("%d units x %d points = %d points for %.2f off (%d points remain)",
			units, minimumRedemption, consumed, discount, pointsRequested-consumed),
	}
}
