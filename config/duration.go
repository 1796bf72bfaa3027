package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// jsonDuration decodes a duration from a string such as "10ms", the form
// YAML files use, or from integer nanoseconds.
type jsonDuration time.Duration

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = jsonDuration(parsed)
	case float64:
		*d = jsonDuration(time.Duration(value))
	case nil:
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

// UnmarshalJSON accepts shutdown_timeout as a duration string or as
// nanoseconds.
func (c *ActorConfig) UnmarshalJSON(data []byte) error {
	type plain ActorConfig
	aux := struct {
		*plain
		ShutdownTimeout jsonDuration `json:"shutdown_timeout"`
	}{plain: (*plain)(c), ShutdownTimeout: jsonDuration(c.ShutdownTimeout)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.ShutdownTimeout = time.Duration(aux.ShutdownTimeout)
	return nil
}

// UnmarshalJSON accepts tick_interval as a duration string or as
// nanoseconds.
func (c *DispatcherConfig) UnmarshalJSON(data []byte) error {
	type plain DispatcherConfig
	aux := struct {
		*plain
		TickInterval jsonDuration `json:"tick_interval"`
	}{plain: (*plain)(c), TickInterval: jsonDuration(c.TickInterval)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.TickInterval = time.Duration(aux.TickInterval)
	return nil
}
