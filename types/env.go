package types

// ------------------------
// Temperature & humidity
// ------------------------

// RawSample is the sensor's result registers, verbatim.
type RawSample struct {
	TempCounts     uint16 `json:"temp_counts"`
	HumidityCounts uint16 `json:"humidity_counts"`
}

// PhysicalSample is a RawSample converted to signed physical units.
type PhysicalSample struct {
	// Hundredths of °C (e.g. 2345 => 23.45°C).
	CentiC int16 `json:"centi_c"`
	// Whole %RH, 0..100.
	RHPercent int16 `json:"rh_pct"`
}

// Celsius returns the temperature in °C (float). Logging only.
func (s PhysicalSample) Celsius() float64 { return float64(s.CentiC) / 100 }

// SensorInfo describes the attached sensor (retained).
type SensorInfo struct {
	Sensor string `json:"sensor"` // "hdc2080"
	Addr   uint16 `json:"addr"`   // I2C address
	Bus    string `json:"bus"`    // "i2c0", "/dev/i2c-1", "sim"
}
