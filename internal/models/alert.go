package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AlertConditionField names the event attribute a condition inspects.
type AlertConditionField string

const (
	ConditionFieldEventType AlertConditionField = "event_type"
	ConditionFieldSeverity  AlertConditionField = "severity"
	ConditionFieldIPAddress AlertConditionField = "ip_address"
)

// AlertConditionOperator names the comparison applied by a condition.
type AlertConditionOperator string

const (
	ConditionOperatorEquals  AlertConditionOperator = "eq"
	ConditionOperatorIn      AlertConditionOperator = "in"
	ConditionOperatorAtLeast AlertConditionOperator = "gte"
)

// AlertCondition is one predicate inside an alert rule. All conditions on
// a rule must match for the rule to fire.
type AlertCondition struct {
	Field    AlertConditionField    `json:"field"`
	Operator AlertConditionOperator `json:"operator"`
	Values   []string               `json:"values"`
}

// AlertConditionList persists conditions as a JSONB column.
type AlertConditionList []AlertCondition

// Value marshals the condition list for persistence.
func (l AlertConditionList) Value() (driver.Value, error) {
	if l == nil {
		l = AlertConditionList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal alert conditions: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the condition list.
func (l *AlertConditionList) Scan(value interface{}) error {
	if value == nil {
		*l = AlertConditionList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported alert condition column type %T", value)
	}
	if len(data) == 0 {
		*l = AlertConditionList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// StringList persists a list of strings as a JSONB column.
type StringList []string

// Value marshals the list for persistence.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported string list column type %T", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// AlertRule is a user-defined condition for triggering notifications.
// Trigger bookkeeping (LastTriggered, TriggerCount) is updated atomically
// each time the rule fires.
type AlertRule struct {
	ID              string             `db:"id" json:"id"`
	Name            string             `db:"name" json:"name"`
	Description     string             `db:"description" json:"description"`
	Enabled         bool               `db:"enabled" json:"enabled"`
	Conditions      AlertConditionList `db:"conditions" json:"conditions"`
	Actions         StringList         `db:"actions" json:"actions"`
	CooldownMinutes int                `db:"cooldown_minutes" json:"cooldown_minutes"`
	CreatedBy       string             `db:"created_by" json:"created_by"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	LastTriggered   *time.Time         `db:"last_triggered" json:"last_triggered,omitempty"`
	TriggerCount    int                `db:"trigger_count" json:"trigger_count"`
}

// Matches reports whether every condition on the rule holds for the event.
func (r *AlertRule) Matches(event *SecurityEventEntry) bool {
	if event == nil {
		return false
	}
	for _, cond := range r.Conditions {
		if !matchCondition(cond, event) {
			return false
		}
	}
	return true
}

func matchCondition(cond AlertCondition, event *SecurityEventEntry) bool {
	var actual string
	switch cond.Field {
	case ConditionFieldEventType:
		actual = string(event.Type)
	case ConditionFieldSeverity:
		actual = string(event.Severity)
	case ConditionFieldIPAddress:
		actual = event.IPAddress
	default:
		return false
	}

	switch cond.Operator {
	case ConditionOperatorEquals:
		return len(cond.Values) == 1 && cond.Values[0] == actual
	case ConditionOperatorIn:
		for _, v := range cond.Values {
			if v == actual {
				return true
			}
		}
		return false
	case ConditionOperatorAtLeast:
		if cond.Field != ConditionFieldSeverity || len(cond.Values) != 1 {
			return false
		}
		return event.Severity.AtLeast(Severity(cond.Values[0]))
	}
	return false
}
