package models

// Courier: ключ перевозчика у провайдера. 0 означает автоопределение.
type Courier int

const CourierAutoDetect Courier = 0

const (
	CourierFedEx         Courier = 100003
	CourierUPS           Courier = 100002
	CourierDHL           Courier = 100216
	CourierUSPS          Courier = 21051
	CourierTNT           Courier = 100004
	CourierAramex        Courier = 100006
	CourierCanadaPost    Courier = 3041
	CourierAustraliaPost Courier = 1151
	CourierRoyalMail     Courier = 11031
)

type CourierInfo struct {
	Key  Courier
	Name string
}

var couriers = []CourierInfo{
	{Key: CourierAutoDetect, Name: "Auto Detect"},
	{Key: CourierFedEx, Name: "FedEx"},
	{Key: CourierUPS, Name: "UPS"},
	{Key: CourierDHL, Name: "DHL"},
	{Key: CourierUSPS, Name: "USPS"},
	{Key: CourierTNT, Name: "TNT"},
	{Key: CourierAramex, Name: "Aramex"},
	{Key: CourierCanadaPost, Name: "Canada Post"},
	{Key: CourierAustraliaPost, Name: "Australia Post"},
	{Key: CourierRoyalMail, Name: "Royal Mail"},
}

// Couriers returns the catalog in display order, "Auto Detect" first.
func Couriers() []CourierInfo {
	out := make([]CourierInfo, len(couriers))
	copy(out, couriers)
	return out
}

func (c Courier) IsAutoDetect() bool { return c == CourierAutoDetect }

func (c Courier) Known() bool {
	for _, ci := range couriers {
		if ci.Key == c {
			return true
		}
	}
	return false
}

func (c Courier) Name() string {
	for _, ci := range couriers {
		if ci.Key == c {
			return ci.Name
		}
	}
	return ""
}
