package lease

import "strings"

type RenewalMode string

const (
	RenewalNone   RenewalMode = "none"
	RenewalAuto   RenewalMode = "auto"
	RenewalMutual RenewalMode = "mutual"
)

type Proration string

const (
	ProrationNone      Proration = "none"
	ProrationDaily     Proration = "daily"
	ProrationThirtyDay Proration = "thirty_day"
)

type Utility string

const (
	UtilityWater       Utility = "water"
	UtilitySewer       Utility = "sewer"
	UtilityTrash       Utility = "trash"
	UtilityElectricity Utility = "electricity"
	UtilityGas         Utility = "gas"
	UtilityHeat        Utility = "heat"
	UtilityInternet    Utility = "internet"
)

type LateFeeType string

const (
	LateFeeFlat    LateFeeType = "flat"
	LateFeePercent LateFeeType = "percent"
)

type SmokingPolicy string

const (
	SmokingProhibited      SmokingPolicy = "prohibited"
	SmokingAllowed         SmokingPolicy = "allowed"
	SmokingDesignatedAreas SmokingPolicy = "designated_areas"
)

// ConsentPolicy governs subletting and alterations.
type ConsentPolicy string

const (
	ConsentProhibited  ConsentPolicy = "prohibited"
	ConsentAllowed     ConsentPolicy = "allowed"
	ConsentWithConsent ConsentPolicy = "with_consent"
)

type NoticeDelivery string

const (
	NoticeEmail        NoticeDelivery = "email"
	NoticeMail         NoticeDelivery = "mail"
	NoticeHandDelivery NoticeDelivery = "hand_delivery"
)

type SignatureMethod string

const (
	SignatureElectronic SignatureMethod = "electronic"
	SignatureWetInk     SignatureMethod = "wet_ink"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyCondo     PropertyType = "condo"
	PropertyTownhouse PropertyType = "townhouse"
	PropertyRoom      PropertyType = "room"
	PropertyOther     PropertyType = "other"
)

// Label turns an enum literal such as "with_consent" into "With consent".
func Label[T ~string](v T) string {
	s := strings.ReplaceAll(string(v), "_", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
