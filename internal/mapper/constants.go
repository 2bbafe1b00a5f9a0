// Package mapper translates decoded remote payloads into device state.
package mapper

// Prometheus metric label names
const (
	LabelDevice = "device"
	LabelKind   = "kind"
	LabelUnit   = "unit"
	LabelMode   = "mode"
	LabelClass  = "class"
	LabelGroup  = "group"
)

// Aggregate groups reported for the central switch.
const (
	GroupAuto   = "auto"
	GroupManual = "manual"
	GroupOff    = "off"
)

// Sample field names used for historical samples.
const (
	FieldTemperature = "temp"
	FieldHumidity    = "humidity"
	FieldPressure    = "pressure"
	FieldStatus      = "status"
)

// sunTimeLayout formats sunrise and sunset.
const sunTimeLayout = "15:04"
