package models

// InboundMessage is one raw transport message after topic routing and
// envelope parsing. Exactly one envelope pointer is set, matching the family.
type InboundMessage struct {
	Topic   string
	Family  DeviceFamily
	Gateway *GatewayEnvelope // AVA4 and Qube
	Watch   *WatchEnvelope   // Kati
}
