package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/scheduler"
)

// Catalog is the configured set of bookable rooms and the business day.
type Catalog struct {
	BusinessHours scheduler.BusinessHours
	rooms         []application.Room
}

type catalogFile struct {
	BusinessHours *businessHoursFile `yaml:"business_hours"`
	Rooms         []roomFile         `yaml:"rooms"`
}

type businessHoursFile struct {
	StartHourMin       *int `yaml:"start_hour_min"`
	StartHourMax       *int `yaml:"start_hour_max"`
	EndHourMin         *int `yaml:"end_hour_min"`
	EndHourMax         *int `yaml:"end_hour_max"`
	GranularityMinutes *int `yaml:"granularity_minutes"`
}

type roomFile struct {
	Name        string `yaml:"name"`
	Capacity    int    `yaml:"capacity"`
	Description string `yaml:"description"`
}

// DefaultCatalog is the two-room office used when no catalog file exists.
func DefaultCatalog() *Catalog {
	return &Catalog{
		BusinessHours: scheduler.DefaultBusinessHours(),
		rooms:         []application.Room{{Name: "Room A"}, {Name: "Room B"}},
	}
}

// Rooms returns a copy of the catalog in file order.
func (c *Catalog) Rooms() []application.Room {
	out := make([]application.Room, len(c.rooms))
	copy(out, c.rooms)
	return out
}

// LoadCatalog reads path. A missing file yields DefaultCatalog only when
// optional is set, which is how the default path is treated.
func LoadCatalog(path string, optional bool) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("read room catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode room catalog: %w", err)
	}

	hours := scheduler.DefaultBusinessHours()
	if bh := file.BusinessHours; bh != nil {
		override(&hours.StartHourMin, bh.StartHourMin)
		override(&hours.StartHourMax, bh.StartHourMax)
		override(&hours.EndHourMin, bh.EndHourMin)
		override(&hours.EndHourMax, bh.EndHourMax)
		override(&hours.GranularityMinutes, bh.GranularityMinutes)
	}
	if err := hours.Validate(); err != nil {
		return nil, fmt.Errorf("business_hours: %w", err)
	}

	if len(file.Rooms) == 0 {
		return nil, fmt.Errorf("room catalog must list at least one room")
	}
	seen := make(map[string]struct{}, len(file.Rooms))
	rooms := make([]application.Room, 0, len(file.Rooms))
	for i, room := range file.Rooms {
		name := strings.TrimSpace(room.Name)
		if name == "" {
			return nil, fmt.Errorf("rooms[%d]: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("rooms[%d]: duplicate room %q", i, name)
		}
		if room.Capacity < 0 {
			return nil, fmt.Errorf("rooms[%d]: capacity must not be negative", i)
		}
		seen[name] = struct{}{}
		rooms = append(rooms, application.Room{Name: name, Capacity: room.Capacity, Description: strings.TrimSpace(room.Description)})
	}

	return &Catalog{BusinessHours: hours, rooms: rooms}, nil
}

func override(dst *int, value *int) {
	if value != nil {
		*dst = *value
	}
}
