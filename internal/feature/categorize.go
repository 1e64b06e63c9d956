package feature

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/collision-cli/internal/model"
)

// Contributing-factor groups.
const (
	FactorHumanError    = "Human Error"
	FactorEnvironmental = "Environmental Factors"
	FactorMechanical    = "Mechanical/Vehicle Issues"
	FactorTraffic       = "Traffic/Regulatory Issues"
	FactorPedestrian    = "Pedestrian/Cyclist Issues"
	FactorDistracted    = "Distracted/Occupied"
)

// Vehicle groups.
const (
	VehiclePassenger = "Passenger Vehicle"
	VehicleTaxi      = "Taxi"
	VehicleTruck     = "Truck"
	VehicleVan       = "Van"
	VehicleBus       = "Bus"
	VehicleBike      = "Bike"
)

var factorGroups = map[string]string{
	"Driver Inattention/Distraction":                        FactorHumanError,
	"Driver Inexperience":                                   FactorHumanError,
	"Following Too Closely":                                 FactorHumanError,
	"Unsafe Speed":                                          FactorHumanError,
	"Failure to Yield Right-of-Way":                         FactorHumanError,
	"Aggressive Driving/Road Rage":                          FactorHumanError,
	"Backing Unsafely":                                      FactorHumanError,
	"Fell Asleep":                                           FactorHumanError,
	"Fatigued/Drowsy":                                       FactorHumanError,
	"Lost Consciousness":                                    FactorHumanError,
	"Alcohol Involvement":                                   FactorHumanError,
	"Drugs (Illegal)":                                       FactorHumanError,
	"Prescription Medication":                               FactorHumanError,
	"Pavement Slippery":                                     FactorEnvironmental,
	"Obstruction/Debris":                                    FactorEnvironmental,
	"View Obstructed/Limited":                               FactorEnvironmental,
	"Glare":                                                 FactorEnvironmental,
	"Outside Car Distraction":                               FactorEnvironmental,
	"Animals Action":                                        FactorEnvironmental,
	"Pavement Defective":                                    FactorEnvironmental,
	"Brakes Defective":                                      FactorMechanical,
	"Steering Failure":                                      FactorMechanical,
	"Tire Failure/Inadequate":                               FactorMechanical,
	"Accelerator Defective":                                 FactorMechanical,
	"Headlights Defective":                                  FactorMechanical,
	"Oversized Vehicle":                                     FactorMechanical,
	"Other Lighting Defects":                                FactorMechanical,
	"Windshield Inadequate":                                 FactorMechanical,
	"Tow Hitch Defective":                                   FactorMechanical,
	"Vehicle Vandalism":                                     FactorMechanical,
	"Physical Disability":                                   FactorMechanical,
	"Traffic Control Disregarded":                           FactorTraffic,
	"Traffic Control Device Improper/Non-Working":           FactorTraffic,
	"Lane Marking Improper/Inadequate":                      FactorTraffic,
	"Pedestrian/Bicyclist/Other Pedestrian Error/Confusion": FactorPedestrian,
	"Unspecified":                                           model.UnknownFactorGroup,
	"Unknown":                                               model.UnknownFactorGroup,
	"Other Vehicular":                                       model.UnknownFactorGroup,
	"Other Electronic Device":                               model.UnknownFactorGroup,
	"Cell Phone (hands-free)":                               FactorDistracted,
	"Cell Phone (hand-held)":                                FactorDistracted,
	"Using On Board Navigation Device":                      FactorDistracted,
	"Eating or Drinking":                                    FactorDistracted,
	"Listening/Using Headphones":                            FactorDistracted,
	"Texting":                                               FactorDistracted,
}

var vehicleGroups = map[string]string{
	"sedan":                               VehiclePassenger,
	"station wagon/sport utility vehicle": VehiclePassenger,
	"passenger vehicle":                   VehiclePassenger,
	"sport utility / station wagon":       VehiclePassenger,
	"taxi":                                VehicleTaxi,
	"pick-up truck":                       VehicleTruck,
	"4 dr sedan":                          VehiclePassenger,
	"box truck":                           VehicleTruck,
	"van":                                 VehicleVan,
	"bus":                                 VehicleBus,
	"bike":                                VehicleBike,
}

// factorIndex is factorGroups keyed by normalized code.
var factorIndex = func() map[string]string {
	idx := make(map[string]string, len(factorGroups))
	for k, v := range factorGroups {
		idx[normalize(k)] = v
	}
	return idx
}()

// normalize lower-cases and trims a raw code. A new Caser is built per call
// because casers carry state and must not be shared across goroutines.
func normalize(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// NormalizeVehicleType returns the lower-cased vehicle code stored on enriched records.
func NormalizeVehicleType(s string) string {
	return normalize(s)
}

// FactorCategory maps a contributing-factor code to its broad group.
// Unmapped codes fall back to "Unknown/Other".
func FactorCategory(code string) string {
	if g, ok := factorIndex[normalize(code)]; ok {
		return g
	}
	return model.UnknownFactorGroup
}

// VehicleCategory maps a vehicle-type code to its broad group.
// Unmapped codes fall back to "Unknown".
func VehicleCategory(code string) string {
	if g, ok := vehicleGroups[normalize(code)]; ok {
		return g
	}
	return model.Unknown
}

// FactorCategories returns every factor group, including the default.
func FactorCategories() []string {
	return []string{
		FactorHumanError, FactorEnvironmental, FactorMechanical, FactorTraffic,
		FactorPedestrian, FactorDistracted, model.UnknownFactorGroup,
	}
}

// PrimaryFactor applies the fallback chain over the five factor codes: the first
// code that is not "Unknown" or "Unspecified", scanning from vehicle 1, else vehicle 1.
// The enrichment stage only uses it when the factor fallback option is enabled.
func PrimaryFactor(codes [5]string) string {
	for _, c := range codes {
		if !isPlaceholder(c) {
			return c
		}
	}
	return codes[0]
}

func isPlaceholder(code string) bool {
	return code == model.Unknown || code == model.Unspecified
}
