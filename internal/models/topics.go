package models

// MQTT topics of the three device families.
const (
	TopicHubStatus = "ESP32_BLE_GW_TX" // AVA4 hub status / heartbeat
	TopicHubData   = "dusun_sub"       // AVA4 BLE sub-device attribute data
	TopicQube      = "CM4_BLE_GW_TX"   // Qube-Vital terminal (reportAttribute + HB_Msg)

	TopicWatchVitalSign = "iMEDE_watch/VitalSign"
	TopicWatchBatch     = "iMEDE_watch/AP55"
	TopicWatchLocation  = "iMEDE_watch/location"
	TopicWatchSleep     = "iMEDE_watch/sleepdata"
	TopicWatchHeartbeat = "iMEDE_watch/hb"
	TopicWatchSOS       = "iMEDE_watch/SOS"
	TopicWatchFall      = "iMEDE_watch/fallDown"
	TopicWatchOnline    = "iMEDE_watch/onlineTrigger"
)

// FamilyForTopic maps a topic to its device family. Unknown topics report
// ok=false and are dropped after tracing.
func FamilyForTopic(topic string) (DeviceFamily, bool) {
	switch topic {
	case TopicHubStatus, TopicHubData:
		return FamilyAVA4, true
	case TopicQube:
		return FamilyQube, true
	case TopicWatchVitalSign, TopicWatchBatch, TopicWatchLocation, TopicWatchSleep,
		TopicWatchHeartbeat, TopicWatchSOS, TopicWatchFall, TopicWatchOnline:
		return FamilyKati, true
	default:
		return "", false
	}
}
