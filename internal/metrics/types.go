package metrics

import "time"

// Temperature is a CPU temperature reading. The zero value means no reading,
// so a legitimate 0 °C stays distinguishable from an absent sensor.
type Temperature struct {
	Celsius float64 `cbor:"c"`
	Valid   bool    `cbor:"v"`
}

// Celsius returns a valid reading of c degrees
func Celsius(c float64) Temperature {
	return Temperature{Celsius: c, Valid: true}
}

// NoTemperature is the absent reading
var NoTemperature = Temperature{}

// RawReading is one instantaneous observation of the host
type RawReading struct {
	CPUPercent  float64
	RAMPercent  float64
	Temperature Temperature
	BytesSent   uint64 // cumulative since boot
	BytesRecv   uint64 // cumulative since boot
}

// Sample is one persisted observation instant
type Sample struct {
	Timestamp    time.Time   `cbor:"ts"`
	CPUPercent   float64     `cbor:"cpu"`
	RAMPercent   float64     `cbor:"ram"`
	Temperature  Temperature `cbor:"temp"`
	UploadKBps   float64     `cbor:"up"`
	DownloadKBps float64     `cbor:"down"`
}

// NewSample combines a reading with its derived throughput, stamped at ts
// truncated to the second.
func NewSample(ts time.Time, r RawReading, tp Throughput) Sample {
	return Sample{
		Timestamp:    ts.Truncate(time.Second),
		CPUPercent:   clampPercent(r.CPUPercent),
		RAMPercent:   clampPercent(r.RAMPercent),
		Temperature:  r.Temperature,
		UploadKBps:   tp.UploadKBps,
		DownloadKBps: tp.DownloadKBps,
	}
}
