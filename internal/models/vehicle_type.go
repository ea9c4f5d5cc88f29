package models

type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeAuto       VehicleType = "auto"

	// Legacy client token for motorcycle, accepted at every boundary.
	vehicleTypeMotoAlias = "moto"
)

var vehicleTypes = map[VehicleType]bool{
	VehicleTypeCar:        true,
	VehicleTypeMotorcycle: true,
	VehicleTypeAuto:       true,
}

// NormalizeVehicleType maps an input token to its canonical vehicle type.
// The "moto" alias becomes "motorcycle"; canonical values pass through.
func NormalizeVehicleType(raw string) VehicleType {
	if raw == vehicleTypeMotoAlias {
		return VehicleTypeMotorcycle
	}
	return VehicleType(raw)
}

// IsValidVehicleType reports whether the token, after normalization, names a
// supported vehicle type.
func IsValidVehicleType(raw string) bool {
	return vehicleTypes[NormalizeVehicleType(raw)]
}
