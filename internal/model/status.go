package model

import (
	"encoding/json"
	"strings"
)

const (
	SolenoidOpen    = "open"
	SolenoidClosed  = "closed"
	SolenoidUnknown = "unknown"
)

// ControllerStatus is the body of GET /status. Every field is optional on the
// wire; absent numbers render as N/A.
type ControllerStatus struct {
	CurrentMoisture       *json.Number `json:"current_moisture,omitempty"`
	SolenoidState         *string      `json:"solenoid_state,omitempty"`
	AutoIrrigationEnabled *bool        `json:"auto_irrigation_enabled,omitempty"`
	MinThreshold          *json.Number `json:"min_threshold,omitempty"`
	MaxThreshold          *json.Number `json:"max_threshold,omitempty"`
	CheckIntervalSeconds  *json.Number `json:"check_interval_seconds,omitempty"`
}

func numberOrNA(n *json.Number) string {
	if n == nil {
		return "N/A"
	}
	return n.String()
}

func (s *ControllerStatus) Moisture() string {
	return numberOrNA(s.CurrentMoisture)
}

func (s *ControllerStatus) MinText() string {
	return numberOrNA(s.MinThreshold)
}

func (s *ControllerStatus) MaxText() string {
	return numberOrNA(s.MaxThreshold)
}

func (s *ControllerStatus) IntervalText() string {
	return numberOrNA(s.CheckIntervalSeconds)
}

func (s *ControllerStatus) HasMoisture() bool {
	return s != nil && s.CurrentMoisture != nil
}

func (s *ControllerStatus) AutoEnabled() bool {
	return s.AutoIrrigationEnabled != nil && *s.AutoIrrigationEnabled
}

// State is the solenoid state as reported, or "unknown".
func (s *ControllerStatus) State() string {
	if s.SolenoidState == nil || *s.SolenoidState == "" {
		return SolenoidUnknown
	}
	return *s.SolenoidState
}

func (s *ControllerStatus) StateUpper() string {
	return strings.ToUpper(s.State())
}
