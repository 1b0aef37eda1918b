package travel

import (
	"math"

	"voyager/internal/travel/saga"
)

// Fixed business rates for package pricing.
const (
	flightFarePerTraveler = 650.0
	hotelRatePerNight     = 180.0
	carRatePerDay         = 75.0
	carInsurancePerDay    = 30.0
	bookingFee            = 25.0
)

// PackagePrice computes the total charge for a travel package. It is pure and
// deterministic; callers must validate the command first, so a trip with a
// non-positive traveler count or inverted dates never reaches it.
func PackagePrice(trip saga.TripDetails, car saga.CarRentalPreferences) float64 {
	nights := trip.ReturnDate.Sub(trip.DepartureDate).Hours() / 24
	if nights < 1 {
		nights = 1
	}

	flight := flightFarePerTraveler * float64(trip.Travelers)
	hotel := hotelRatePerNight * float64(trip.Travelers) * nights

	carRate := carRatePerDay
	if car.IncludeInsurance {
		carRate += carInsurancePerDay
	}

	return round2(flight + hotel + carRate*nights + bookingFee)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
