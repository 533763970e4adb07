package normalizer

import (
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// AVA4 hub sub-device attribute tags, as reported on dusun_sub. Each tag is
// the sensor model label the hub firmware attaches to the scan.
const (
	HubAttrBloodPressure  = "BP_BIOLIGTH" // spelling as transmitted by the hub
	HubAttrBloodPressure2 = "WBP BIOLIGHT"
	HubAttrSpO2           = "Oximeter JUMPER"
	HubAttrGlucoseContour = "Contour_Elite"
	HubAttrGlucoseAccu    = "AccuChek_Instant"
	HubAttrTemperature    = "IR_TEMO_JUMPER"
	HubAttrWeight         = "BodyScale_JUMPER"
	HubAttrUricAcid       = "MGSS_REF_UA"
	HubAttrCholesterol    = "MGSS_REF_CHOL"
)

// hubAttributeKinds is the total mapping from AVA4 attribute tags to
// vital-sign kinds; tags outside this map are explicit no-ops.
var hubAttributeKinds = map[string]models.VitalKind{
	HubAttrBloodPressure:  models.KindBloodPressure,
	HubAttrBloodPressure2: models.KindBloodPressure,
	HubAttrSpO2:           models.KindSpO2,
	HubAttrGlucoseContour: models.KindBloodSugar,
	HubAttrGlucoseAccu:    models.KindBloodSugar,
	HubAttrTemperature:    models.KindBodyTemperature,
	HubAttrWeight:         models.KindWeight,
	HubAttrUricAcid:       models.KindUricAcid,
	HubAttrCholesterol:    models.KindCholesterol,
}

// HubNormalizer decodes AVA4 sub-device payloads.
type HubNormalizer struct {
	decoders map[string]scanDecoder
	logger   *zap.Logger
}

// NewHubNormalizer builds the AVA4 decoder table.
func NewHubNormalizer(logger *zap.Logger) *HubNormalizer {
	return &HubNormalizer{
		decoders: map[string]scanDecoder{
			HubAttrBloodPressure:  decodeBloodPressureScan,
			HubAttrBloodPressure2: decodeBloodPressureScan,
			HubAttrSpO2:           decodeSpO2Scan,
			HubAttrGlucoseContour: decodeGlucoseScan,
			HubAttrGlucoseAccu:    decodeGlucoseScan,
			HubAttrTemperature:    decodeTemperatureScan,
			HubAttrWeight:         decodeWeightScan,
			HubAttrUricAcid:       decodeUricAcidScan,
			HubAttrCholesterol:    decodeCholesterolScan,
		},
		logger: logger,
	}
}

// Normalize decodes a dusun_sub envelope. Unknown attribute tags yield
// (nil, nil).
func (n *HubNormalizer) Normalize(env *models.GatewayEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	decode, ok := n.decoders[env.Data.Attribute]
	if !ok {
		n.logger.Debug("Unknown hub attribute tag",
			zap.String("attribute", env.Data.Attribute),
			zap.String("gateway_mac", env.MAC),
		)
		return nil, nil
	}

	deviceID := env.Data.MAC
	if deviceID == "" {
		deviceID = env.MAC
	}
	return decodeScanList(env.Data.Value, deviceID, models.FamilyAVA4, receivedAt, decode)
}
