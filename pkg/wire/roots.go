package wire

// Default transport parameters.
const (
	// Scheme is the URI scheme of CoAP over DTLS.
	Scheme = "coaps"

	// DefaultPort is the well-known CoAP over DTLS port.
	DefaultPort = 5684
)

// Resource roots. These are the first segment of every resource path.
const (
	RootDevices       = "15001"
	RootGroups        = "15004"
	RootMoods         = "15005"
	RootNotification  = "15006"
	RootSmartTasks    = "15010"
	RootGateway       = "15011"
	RootStartAction   = "15013"
	RootWellKnownCore = ".well-known/core"
)

// Gateway sub-resources (second segment under RootGateway).
const (
	GatewayInfo         = "15012"
	GatewayAuth         = "9063"
	GatewayReboot       = "9030"
	GatewayFactoryReset = "9031"
)

// Common attribute keys.
const (
	AttrName          = "9001"
	AttrCreatedAt     = "9002"
	AttrID            = "9003"
	AttrOTAUpdate     = "9054"
	AttrReachable     = "9019"
	AttrLastSeen      = "9020"
	AttrApplicationID = "5750"
	AttrDeviceInfo    = "3"
)

// Device info attribute keys (nested under AttrDeviceInfo).
const (
	AttrManufacturer    = "0"
	AttrModelNumber     = "1"
	AttrSerial          = "2"
	AttrFirmwareVersion = "3"
	AttrPowerSource     = "6"
	AttrBattery         = "9"
)

// Control blocks. Each is a list holding one object per controllable unit.
const (
	AttrLightControl   = "3311"
	AttrSocketControl  = "3312"
	AttrSensor         = "3300"
	AttrBlindControl   = "15015"
	AttrSignalRepeater = "15014"
	AttrAirPurifier    = "15025"
	AttrRemote         = "15009"
)

// Light, socket and group state keys.
const (
	AttrState           = "5850"
	AttrDimmer          = "5851"
	AttrColorHex        = "5706"
	AttrColorHue        = "5707"
	AttrColorSaturation = "5708"
	AttrColorX          = "5709"
	AttrColorY          = "5710"
	AttrColorMireds     = "5711"
	AttrTransitionTime  = "5712"
)

// Blind keys.
const (
	AttrBlindPosition = "5536"
	AttrBlindTrigger  = "5523"
)

// Air purifier keys.
const (
	AttrPurifierMode           = "5900"
	AttrPurifierFanSpeed       = "5908"
	AttrPurifierFilterLifetime = "5910"
	AttrPurifierAirQuality     = "5907"
	AttrPurifierControlsLocked = "5905"
)

// Group and mood keys.
const (
	AttrGroupMembers = "9018"
	AttrHSLink       = "15002"
	AttrMoodID       = "9039"
	AttrMoodParent   = "9068"
	AttrLightSetting = "15013"
)

// Smart task keys.
const (
	AttrSmartTaskType   = "9040"
	AttrRepeatDays      = "9041"
	AttrStartAction     = "9042"
	AttrTriggerTime     = "9044"
	AttrTriggerHour     = "9046"
	AttrTriggerMinute   = "9047"
	AttrTaskDeviceState = "15013"
)

// Gateway keys.
const (
	AttrIdentity          = "9090"
	AttrPSK               = "9091"
	AttrCommissioningMode = "9061"
	AttrFirmware          = "9029"
	AttrNTPServer         = "9023"
	AttrCurrentTimeUnix   = "9059"
	AttrCurrentTimeISO    = "9060"
	AttrFirstSetup        = "9069"
	AttrHomekitID         = "9083"
	AttrGatewayID         = "9081"
	AttrGatewayTimeSource = "9071"
)

// Notification keys.
const (
	AttrNotificationEvent = "9015"
	AttrNotificationData  = "9017"
	AttrNotificationState = "9014"
)
