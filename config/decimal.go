package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Decimal 配置文件中的定点数字段。yaml.v3 不支持 TextUnmarshaler，
// 所以这里做一层包装，数值以字符串精度解析，避免 float64 中转。
type Decimal struct {
	decimal.Decimal
}

// Dec 从字符串构造，仅用于默认值与测试。
func Dec(s string) Decimal {
	return Decimal{decimal.RequireFromString(s)}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Decimal) UnmarshalYAML(node *yaml.Node) error {
	v, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", node.Value, err)
	}
	d.Decimal = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Decimal) MarshalYAML() (interface{}, error) {
	return d.Decimal.String(), nil
}
