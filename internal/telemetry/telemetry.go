package telemetry

// Frame is one fully decoded telemetry record received from the payload.
// A Frame is only ever produced from a complete record, see Parse.
type Frame struct {
	GPS         GPS         `json:"gps"`
	IMU         IMU         `json:"imu"`
	Environment Environment `json:"environment"`
	Power       Power       `json:"power"`
	Gas         Gas         `json:"gas"`
	Status      Status      `json:"status"`
}

// GPS is the position fix reported by the GPS receiver
type GPS struct {
	Latitude  float64 `json:"latitude"`  // GPS latitude in degrees
	Longitude float64 `json:"longitude"` // GPS longitude in degrees
	Altitude  float64 `json:"altitude"`  // GPS altitude in meters
	Speed     float64 `json:"speed"`     // Ground speed in m/s
}

// IMU is the inertial measurement unit reading
type IMU struct {
	AccelX float32 `json:"accelX"` // X-axis acceleration in m/s²
	AccelY float32 `json:"accelY"` // Y-axis acceleration in m/s²
	AccelZ float32 `json:"accelZ"` // Z-axis acceleration in m/s²
	Pitch  float32 `json:"pitch"`  // Pitch rate in °/s
	Roll   float32 `json:"roll"`   // Roll rate in °/s
	Yaw    float32 `json:"yaw"`    // Yaw rate in °/s
}

// Environment holds the barometer and humidity sensor readings
type Environment struct {
	TempBMP  float32 `json:"tempBmp"`  // BMP temperature in °C
	Pressure float32 `json:"pressure"` // Barometric pressure in hPa
	TempDHT  float32 `json:"tempDht"`  // DHT temperature in °C
	Humidity float32 `json:"humidity"` // Relative humidity in %
}

// Power holds the battery and regulator readings
type Power struct {
	BatteryVoltage   float32 `json:"batteryVoltage"`   // Battery voltage in V
	BatteryPercent   float32 `json:"batteryPercent"`   // Battery charge in %
	RegulatorVoltage float32 `json:"regulatorVoltage"` // Regulator output in V
}

// Gas holds the gas sensor concentrations, all in ppm
type Gas struct {
	CO  float32 `json:"co"`
	CO2 float32 `json:"co2"`
	CH4 float32 `json:"ch4"`
}

// Status holds the payload flags
type Status struct {
	FreeFall bool   `json:"freeFall"`
	SDStatus string `json:"sdStatus"` // Free text reported by the SD card logger
}
