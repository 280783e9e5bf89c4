package telemetry

import (
	"strconv"
	"strings"
)

// FieldCount is the number of comma separated fields in a telemetry record
const FieldCount = 23

// Field indexes of the wire record:
//
//	lat,lon,alt_gps,speed,satellites,ax,ay,az,pitch,roll,yaw,temp_bmp,pressure,
//	temp_dht,humidity,battery_voltage,battery_percent,regulator_voltage,co,co2,ch4,
//	free_fall,sd_status
const (
	FieldLatitude = iota
	FieldLongitude
	FieldAltitudeGPS
	FieldSpeed
	FieldSatellites // received but not decoded
	FieldAccelX
	FieldAccelY
	FieldAccelZ
	FieldPitch
	FieldRoll
	FieldYaw
	FieldTempBMP
	FieldPressure
	FieldTempDHT
	FieldHumidity
	FieldBatteryVoltage
	FieldBatteryPercent
	FieldRegulatorVoltage
	FieldCO
	FieldCO2
	FieldCH4
	FieldFreeFall
	FieldSDStatus
)

// FieldNames maps field indexes to their wire names
var FieldNames = [FieldCount]string{
	"lat", "lon", "alt_gps", "speed", "satellites",
	"ax", "ay", "az", "pitch", "roll", "yaw",
	"temp_bmp", "pressure", "temp_dht", "humidity",
	"battery_voltage", "battery_percent", "regulator_voltage",
	"co", "co2", "ch4",
	"free_fall", "sd_status",
}

// Parse decodes a single telemetry line into a Frame.
//
// The line is trimmed and split on commas. Records with fewer than FieldCount
// fields are rejected with a *FieldCountError before any field is read; extra
// trailing fields are ignored. The first numeric field that fails to parse
// aborts decoding with a *FieldParseError, so a Frame is either complete or
// not returned at all.
func Parse(line string) (Frame, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < FieldCount {
		return Frame{}, &FieldCountError{Expected: FieldCount, Actual: len(fields)}
	}

	r := fieldReader{fields: fields}
	f := Frame{
		GPS: GPS{
			Latitude:  r.float64(FieldLatitude),
			Longitude: r.float64(FieldLongitude),
			Altitude:  r.float64(FieldAltitudeGPS),
			Speed:     r.float64(FieldSpeed),
		},
		IMU: IMU{
			AccelX: r.float32(FieldAccelX),
			AccelY: r.float32(FieldAccelY),
			AccelZ: r.float32(FieldAccelZ),
			Pitch:  r.float32(FieldPitch),
			Roll:   r.float32(FieldRoll),
			Yaw:    r.float32(FieldYaw),
		},
		Environment: Environment{
			TempBMP:  r.float32(FieldTempBMP),
			Pressure: r.float32(FieldPressure),
			TempDHT:  r.float32(FieldTempDHT),
			Humidity: r.float32(FieldHumidity),
		},
		Power: Power{
			BatteryVoltage:   r.float32(FieldBatteryVoltage),
			BatteryPercent:   r.float32(FieldBatteryPercent),
			RegulatorVoltage: r.float32(FieldRegulatorVoltage),
		},
		Gas: Gas{
			CO:  r.float32(FieldCO),
			CO2: r.float32(FieldCO2),
			CH4: r.float32(FieldCH4),
		},
		Status: Status{
			FreeFall: fields[FieldFreeFall] == "1",
			SDStatus: fields[FieldSDStatus],
		},
	}
	if r.err != nil {
		return Frame{}, r.err
	}

	return f, nil
}

// fieldReader converts record fields and keeps the first conversion error.
// Struct literal fields are evaluated in order, so the reported error is
// the lowest failing index.
type fieldReader struct {
	fields []string
	err    error
}

func (r *fieldReader) parse(index int, bitSize int) float64 {
	if r.err != nil {
		return 0
	}

	raw := r.fields[index]
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), bitSize)
	if err != nil {
		r.err = &FieldParseError{
			Index: index,
			Name:  FieldNames[index],
			Value: raw,
			Err:   err,
		}
		return 0
	}
	return v
}

func (r *fieldReader) float64(index int) float64 {
	return r.parse(index, 64)
}

func (r *fieldReader) float32(index int) float32 {
	return float32(r.parse(index, 32))
}
