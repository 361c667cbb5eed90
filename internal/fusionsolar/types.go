package fusionsolar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Float decodes numbers the API sends as JSON numbers, numeric strings or
// null. Null and empty strings decode to zero.
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*f = 0
			return nil
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decoding number %q: %w", s, err)
	}
	*f = Float(v)
	return nil
}

// Station is one plant from the station list.
type Station struct {
	Code      string `json:"stationCode"`
	Name      string `json:"stationName"`
	Address   string `json:"stationAddr"`
	Capacity  Float  `json:"capacity"`
	Latitude  Float  `json:"latitude"`
	Longitude Float  `json:"longitude"`
	Contact   string `json:"stationLinkman,omitempty"`
}

// stationPage is the data section of the station list.
type stationPage struct {
	Total int       `json:"total"`
	List  []Station `json:"list"`
}

// KPI is one collect interval of station indicators.
type KPI struct {
	StationCode string           `json:"stationCode"`
	CollectTime int64            `json:"collectTime"`
	DataItemMap map[string]Float `json:"dataItemMap"`
}

// KPI item names.
const (
	ItemProductionPower = "production_power"
	ItemInverterPower   = "inverter_power"
	ItemDayPower        = "day_power"
	ItemMonthPower      = "month_power"
	ItemTotalPower      = "total_power"
	ItemPowerProfit     = "power_profit"
	ItemRealHealthState = "real_health_state"
)

// Value returns a data item, or zero when absent.
func (k KPI) Value(item string) float64 {
	return float64(k.DataItemMap[item])
}

// Production returns the generated energy in kWh, preferring the station
// meter reading and falling back to the inverter total.
func (k KPI) Production() float64 {
	if v, ok := k.DataItemMap[ItemProductionPower]; ok && v != 0 {
		return float64(v)
	}
	return k.Value(ItemInverterPower)
}

// CollectedAt returns CollectTime as a time.
func (k KPI) CollectedAt() time.Time {
	return time.UnixMilli(k.CollectTime)
}

// Device types.
const (
	DevTypeInverter = 1
)

// Device is one piece of equipment at a station.
type Device struct {
	ID          int64  `json:"id"`
	Name        string `json:"devName"`
	TypeID      int    `json:"devTypeId"`
	ESN         string `json:"esnCode"`
	StationCode string `json:"stationCode"`
	Model       string `json:"invType,omitempty"`
	Software    string `json:"softwareVersion,omitempty"`
}

// IsInverter reports whether the device is an inverter.
func (d Device) IsInverter() bool {
	return d.TypeID == DevTypeInverter
}

// Alarm is one active or historical alarm.
type Alarm struct {
	Name        string `json:"alarmName"`
	Cause       string `json:"alarmCause"`
	Level       int    `json:"alarmLevel"`
	RaiseTime   int64  `json:"raiseTime"`
	StationCode string `json:"stationCode"`
	DeviceName  string `json:"devName"`
}

// RaisedAt returns RaiseTime as a time, or the zero time when unset.
func (a Alarm) RaisedAt() time.Time {
	if a.RaiseTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(a.RaiseTime)
}
