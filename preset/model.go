package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// CustomPrefix namespaces generated ids of user-created presets.
const CustomPrefix = "custom-"

// Origin tells whether a preset was seeded by the registry or created by a user.
type Origin string

const (
	OriginBuiltin Origin = "builtin"
	OriginCustom  Origin = "custom"
)

// Preset is a named viewport size configuration.
type Preset struct {
	ID          string    `json:"id" yaml:"id"`
	Label       string    `json:"label" yaml:"label"`
	Width       Dimension `json:"width" yaml:"width"`
	Height      Dimension `json:"height" yaml:"height"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Origin      Origin    `json:"origin" yaml:"-"`
}

// Deletable reports whether the preset may be removed from a registry.
func (p Preset) Deletable() bool {
	return p.Origin == OriginCustom
}

func (p Preset) validate() error {
	if strings.ContainsFunc(p.ID, func(r rune) bool { return r == '/' || unicode.IsSpace(r) }) {
		return fmt.Errorf("%w: id %q contains a slash or whitespace", ErrInvalidPreset, p.ID)
	}
	if strings.TrimSpace(p.Label) == "" {
		return fmt.Errorf("%w: label is empty", ErrInvalidPreset)
	}
	if !p.Width.Valid() {
		return fmt.Errorf("%w: width %s", ErrInvalidPreset, p.Width)
	}
	if !p.Height.Valid() {
		return fmt.Errorf("%w: height %s", ErrInvalidPreset, p.Height)
	}
	return nil
}

// TokenAuto sizes a dimension to the available space.
const TokenAuto = "auto"

var percentToken = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?%$`)

// Dimension is either a pixel count or a symbolic sizing token such as
// "auto" or "50%". Exactly one of Pixels and Token is set on a valid value.
type Dimension struct {
	Pixels int
	Token  string
}

// Px returns a pixel dimension.
func Px(n int) Dimension {
	return Dimension{Pixels: n}
}

// Token returns a symbolic dimension.
func Token(s string) Dimension {
	return Dimension{Token: s}
}

// Valid reports whether d is a positive pixel count or a recognised token.
func (d Dimension) Valid() bool {
	if d.Token != "" {
		if d.Pixels != 0 {
			return false
		}
		return d.Token == TokenAuto || percentToken.MatchString(d.Token)
	}
	return d.Pixels > 0
}

// IsPixels reports whether d holds a pixel count.
func (d Dimension) IsPixels() bool {
	return d.Token == ""
}

func (d Dimension) String() string {
	if d.Token != "" {
		return d.Token
	}
	return strconv.Itoa(d.Pixels)
}

func (d Dimension) MarshalJSON() ([]byte, error) {
	if d.Token != "" {
		return json.Marshal(d.Token)
	}
	return json.Marshal(d.Pixels)
}

func (d *Dimension) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Dimension{Pixels: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("dimension must be a number or a string: %s", data)
	}
	*d = parseDimension(s)
	return nil
}

func (d *Dimension) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("dimension must be a scalar, line %d", value.Line)
	}
	*d = parseDimension(value.Value)
	return nil
}

func (d Dimension) MarshalYAML() (any, error) {
	if d.Token != "" {
		return d.Token, nil
	}
	return d.Pixels, nil
}

// parseDimension reads numeric strings as pixels and anything else as a token.
func parseDimension(s string) Dimension {
	if n, err := strconv.Atoi(s); err == nil {
		return Dimension{Pixels: n}
	}
	return Dimension{Token: s}
}

var (
	ErrDuplicateID   = errors.New("preset id already exists")
	ErrInvalidPreset = errors.New("invalid preset")
	ErrNotDeletable  = errors.New("preset is not deletable")
	ErrNotFound      = errors.New("preset not found")
	ErrUnknownPreset = errors.New("unknown preset")
)
