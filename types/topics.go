package types

import "tempbeacon-go/bus"

// Telemetry topics published by the beacon cycle.
var (
	TopicBeaconState   = bus.T("beacon", "state")   // retained StateChange
	TopicBeaconReading = bus.T("beacon", "reading") // retained Reading
	TopicBeaconFault   = bus.T("beacon", "fault")   // Fault
	TopicBeaconSensor  = bus.T("beacon", "sensor")  // retained SensorInfo
)
