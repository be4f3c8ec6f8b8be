package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Tuning is the flat set of tunables read once at process start.
type Tuning struct {
	// Turn budget.
	MaxTurnDuration       time.Duration `yaml:"max_turn_duration" validate:"gt=0"`
	NavSortThreshold      int           `yaml:"nav_sort_threshold" validate:"gte=0"`
	DeadlineCheckInterval int           `yaml:"deadline_check_interval" validate:"gt=0"`

	// Fleet composition.
	MinShipAttackers       int     `yaml:"min_ship_attackers" validate:"gte=0"`
	MaxRatioShipAttackers  float64 `yaml:"max_ratio_ship_attackers" validate:"gte=0,lte=1"`
	MaxRatioShipPerPlanet  float64 `yaml:"max_ratio_ship_per_planet" validate:"gt=0,lte=1"`
	MaxTurnDefender        int     `yaml:"max_turn_defender" validate:"gt=0"`
	DefenderRadius         float64 `yaml:"defender_radius" validate:"gte=0"`
	MinerDefenderRadius    float64 `yaml:"miner_defender_radius" validate:"gte=0"`
	MinerCanDefend         bool    `yaml:"miner_can_defend"`

	// Ships and sites are approached to this far from their edge.
	ClosestPointMinDistance float64 `yaml:"closest_point_min_distance" validate:"gte=0"`

	// Moving enemies farther than FollowDistance are chased at the point
	// they will reach in up to FollowTurns turns. 0 disables it.
	FollowDistance float64 `yaml:"follow_distance" validate:"gte=0"`
	FollowTurns    int     `yaml:"follow_turns" validate:"gte=1"`

	// Nemesis score.
	ShipWeight      float64 `yaml:"ship_weight"`
	PlanetWeight    float64 `yaml:"planet_weight"`
	ProximityWeight float64 `yaml:"proximity_weight" validate:"lte=0"`

	// Navigation.
	MaxCorrections         int     `yaml:"max_corrections" validate:"gte=0"`
	AngularStep            float64 `yaml:"angular_step" validate:"gt=0"`
	FallbackCorrections    int     `yaml:"fallback_corrections" validate:"gte=0"`
	IntermediateRatio      float64 `yaml:"intermediate_ratio" validate:"gt=0,lte=1"`
	GhostRatioRadius       float64 `yaml:"ghost_ratio_radius" validate:"gte=0"`
	NavigationShipDistance float64 `yaml:"navigation_ship_distance" validate:"gt=0"`

	// Influence field.
	UseInfluence       bool    `yaml:"use_influence"`
	ShipInfluence      float64 `yaml:"ship_influence" validate:"gte=0"`
	PlanetInfluence    float64 `yaml:"planet_influence" validate:"gte=0"`
	InfluenceStep      int     `yaml:"influence_step" validate:"gte=1"`
	InfluenceZone      float64 `yaml:"influence_zone" validate:"gt=0"`
	InfluenceThreshold float64 `yaml:"influence_threshold" validate:"gte=0"`

	// Squads.
	CreateSquad           bool    `yaml:"create_squad"`
	SquadSize             int     `yaml:"squad_size" validate:"gte=1"`
	SquadDistanceCreation float64 `yaml:"squad_distance_creation" validate:"gt=0"`
}

// DefaultTuning returns the values the bot ships with.
func DefaultTuning() Tuning {
	return Tuning{
		MaxTurnDuration:       1800 * time.Millisecond,
		NavSortThreshold:      100,
		DeadlineCheckInterval: 10,

		MinShipAttackers:        1,
		MaxRatioShipAttackers:   0.25,
		MaxRatioShipPerPlanet:   0.5,
		MaxTurnDefender:         5,
		DefenderRadius:          10,
		MinerDefenderRadius:     10,
		MinerCanDefend:          true,
		ClosestPointMinDistance: 3,
		FollowDistance:          28,
		FollowTurns:             4,

		ShipWeight:      1,
		PlanetWeight:    2,
		ProximityWeight: -0.1,

		MaxCorrections:         90,
		AngularStep:            1,
		FallbackCorrections:    30,
		IntermediateRatio:      0.5,
		GhostRatioRadius:       1.3,
		NavigationShipDistance: 92,

		UseInfluence:       false,
		ShipInfluence:      11,
		PlanetInfluence:    7,
		InfluenceStep:      5,
		InfluenceZone:      32,
		InfluenceThreshold: 0,

		CreateSquad:           false,
		SquadSize:             6,
		SquadDistanceCreation: 20,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its bounds.
func (t Tuning) Validate() error {
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			v := verrs[0]
			return fmt.Errorf("tuning: %s fails %s=%s (value %v)", v.Field(), v.Tag(), v.Param(), v.Value())
		}
		return fmt.Errorf("tuning: %w", err)
	}
	return nil
}

// LoadTuning reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// SaveTuning writes t as YAML.
func SaveTuning(path string, t Tuning) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tuning: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tuning: %w", err)
	}
	return nil
}
