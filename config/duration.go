package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持 "30s" / "5m" 写法的时长字段。裸数字按秒解析，
// 方便从旧配置迁移。
type Duration time.Duration

// D 返回标准库时长。
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!str" {
		parsed, err := time.ParseDuration(node.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", node.Value, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var asSeconds float64
	if err := node.Decode(&asSeconds); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds")
	}
	*d = Duration(time.Duration(asSeconds * float64(time.Second)))
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
