package normalizer

import (
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// Qube-Vital terminal attribute tags, as reported on CM4_BLE_GW_TX. The
// terminal relays the same BLE sensor frames as the hub but labels them with
// its own tag vocabulary.
const (
	QubeAttrBloodPressure = "WBP_JUMPER"
	QubeAttrGlucose       = "CONTOUR"
	QubeAttrSpO2          = "Oximeter_JUMPER"
	QubeAttrTemperature   = "TEMO_Jumper"
	QubeAttrWeight        = "BodyScale_JUMPER"
	QubeAttrUricAcid      = "MGSS_REF_UA"
	QubeAttrCholesterol   = "MGSS_REF_CHOL"
)

var qubeAttributeKinds = map[string]models.VitalKind{
	QubeAttrBloodPressure: models.KindBloodPressure,
	QubeAttrGlucose:       models.KindBloodSugar,
	QubeAttrSpO2:          models.KindSpO2,
	QubeAttrTemperature:   models.KindBodyTemperature,
	QubeAttrWeight:        models.KindWeight,
	QubeAttrUricAcid:      models.KindUricAcid,
	QubeAttrCholesterol:   models.KindCholesterol,
}

// TerminalNormalizer decodes Qube-Vital reportAttribute payloads.
type TerminalNormalizer struct {
	decoders map[string]scanDecoder
	logger   *zap.Logger
}

// NewTerminalNormalizer builds the Qube decoder table.
func NewTerminalNormalizer(logger *zap.Logger) *TerminalNormalizer {
	return &TerminalNormalizer{
		decoders: map[string]scanDecoder{
			QubeAttrBloodPressure: decodeBloodPressureScan,
			QubeAttrGlucose:       decodeGlucoseScan,
			QubeAttrSpO2:          decodeSpO2Scan,
			QubeAttrTemperature:   decodeTemperatureScan,
			QubeAttrWeight:        decodeWeightScan,
			QubeAttrUricAcid:      decodeUricAcidScan,
			QubeAttrCholesterol:   decodeCholesterolScan,
		},
		logger: logger,
	}
}

// Normalize decodes a terminal reportAttribute envelope. Unknown attribute
// tags yield (nil, nil). Terminal sub-devices are shared hospital sensors,
// so the observation's device identity is the terminal itself when the scan
// carries no BLE address.
func (n *TerminalNormalizer) Normalize(env *models.GatewayEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	decode, ok := n.decoders[env.Data.Attribute]
	if !ok {
		n.logger.Debug("Unknown terminal attribute tag",
			zap.String("attribute", env.Data.Attribute),
			zap.String("terminal_mac", env.MAC),
		)
		return nil, nil
	}

	return decodeScanList(env.Data.Value, env.MAC, models.FamilyQube, receivedAt, decode)
}
